// Package config loads ruuth's configuration from a TOML file
// (HostSettings/BehaviourSettings/SessionSettings/Logging), with
// RUUTH_-prefixed environment variable overrides layered on top, since
// this service is configured by an operator-supplied file rather than a
// container-orchestrator env block alone.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/outurnate/ruuth/internal/apperror"
)

// BindKind discriminates the three mutually exclusive transport modes a
// ruuth instance can bind to.
type BindKind int

const (
	BindTCP BindKind = iota
	BindTLS
	BindUnix
)

// Bind is the tagged union over {Tcp{bind}, Tls{bind,public_key,private_key},
// Unix{path}}. Exactly one of Addr/Path (and, for TLS, the key pair) is
// meaningful depending on Kind.
type Bind struct {
	Kind BindKind

	// Addr is the socket address for BindTCP and BindTLS.
	Addr string

	// PublicKey and PrivateKey are PEM file paths, set only for BindTLS.
	PublicKey  string
	PrivateKey string

	// Path is the filesystem path for BindUnix.
	Path string
}

// fromTOML fills b from the generic decoded [host.bind] table, keyed by
// the "type" discriminant plus the fields relevant to that variant.
// go-toml/v2 has no hook for decoding a tagged union directly into a sum
// type, so Load decodes the table as map[string]any and converts here.
func (b *Bind) fromTOML(table map[string]any) error {
	kind, _ := table["type"].(string)
	switch strings.ToLower(kind) {
	case "tcp", "":
		b.Kind = BindTCP
		b.Addr, _ = table["bind"].(string)
	case "tls":
		b.Kind = BindTLS
		b.Addr, _ = table["bind"].(string)
		b.PublicKey, _ = table["public_key"].(string)
		b.PrivateKey, _ = table["private_key"].(string)
	case "unix":
		b.Kind = BindUnix
		b.Path, _ = table["path"].(string)
	default:
		return fmt.Errorf("unknown host.bind type %q", kind)
	}
	return nil
}

// HostSettings is the [host] table: process-wide secrets, the database
// connection string, the public domain, and the bind mode.
type HostSettings struct {
	Bind          Bind
	ClusterSecret string
	DatabaseURL   string
	Realm         string
	Domain        string
}

// BehaviourSettings is the [behaviour] table: the anti-abuse thresholds.
type BehaviourSettings struct {
	// Captcha is the threshold past which a CAPTCHA is issued. Nil means
	// CAPTCHA is never issued.
	Captcha *int `toml:"captcha"`

	// FakeLogin is the threshold past which login always fails for the
	// host, regardless of credentials. Nil means this gate never fires.
	FakeLogin *int `toml:"fake_login"`

	// Expiration is the ban-tracker sliding-window size, in minutes.
	Expiration int64 `toml:"expiration"`
}

// SessionBackendKind discriminates the three session storage backends.
type SessionBackendKind int

const (
	SessionInMemory SessionBackendKind = iota
	SessionSQL
	SessionRedis
)

// SessionBackend is the tagged union over {InMemory, Sql, Redis(url)}.
type SessionBackend struct {
	Kind     SessionBackendKind
	RedisURL string
}

// fromTOML fills s from the generic decoded [session] backend value, which
// may appear as a bare string ("in_memory", "sql") or, for Redis, a table
// {type = "redis", url = "..."} since that variant carries a payload.
func (s *SessionBackend) fromTOML(value any) error {
	switch v := value.(type) {
	case string:
		switch strings.ToLower(v) {
		case "in_memory", "inmemory", "":
			s.Kind = SessionInMemory
		case "sql":
			s.Kind = SessionSQL
		default:
			return fmt.Errorf("unknown session backend %q", v)
		}
		return nil
	case map[string]any:
		kind, _ := v["type"].(string)
		switch strings.ToLower(kind) {
		case "redis":
			s.Kind = SessionRedis
			s.RedisURL, _ = v["url"].(string)
			return nil
		default:
			return fmt.Errorf("unknown session backend type %q", kind)
		}
	default:
		return fmt.Errorf("session backend must be a string or table")
	}
}

// SessionSettings is the [session] table.
type SessionSettings struct {
	Backend               SessionBackend
	SessionTimeoutSeconds *int64
	CookieName            *string
}

// LogLevel is the operator-facing verbosity scale for [logging]
// minimum_level.
type LogLevel string

const (
	LogLevelTrace   LogLevel = "trace"
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// Logging is the optional [logging] table.
type Logging struct {
	File         string    `toml:"file"`
	TraceFilter  *string   `toml:"trace_filter"`
	MinimumLevel *LogLevel `toml:"minimum_level"`
}

// Settings is the root of the TOML document.
type Settings struct {
	Host      HostSettings
	Behaviour BehaviourSettings
	Session   SessionSettings
	Logging   *Logging
}

// rawSettings is the structural decode target for the TOML document. The
// two tagged-union fields (host.bind, session.backend) land here as
// generic values and are converted by the fromTOML methods above, since
// go-toml/v2 only decodes structurally.
type rawSettings struct {
	Host struct {
		Bind          map[string]any `toml:"bind"`
		ClusterSecret string         `toml:"cluster_secret"`
		DatabaseURL   string         `toml:"database_url"`
		Realm         string         `toml:"realm"`
		Domain        string         `toml:"domain"`
	} `toml:"host"`
	Behaviour BehaviourSettings `toml:"behaviour"`
	Session   struct {
		Backend               any     `toml:"backend"`
		SessionTimeoutSeconds *int64  `toml:"session_timeout_seconds"`
		CookieName            *string `toml:"cookie_name"`
	} `toml:"session"`
	Logging *Logging `toml:"logging"`
}

// Load reads the TOML file at path, then applies RUUTH_-prefixed
// environment variable overrides on top of it.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = "ruuth.toml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperror.NewConfig(fmt.Errorf("reading config file %s: %w", path, err))
	}

	var raw rawSettings
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, apperror.NewConfig(fmt.Errorf("parsing config file %s: %w", path, err))
	}

	settings := Settings{
		Host: HostSettings{
			ClusterSecret: raw.Host.ClusterSecret,
			DatabaseURL:   raw.Host.DatabaseURL,
			Realm:         raw.Host.Realm,
			Domain:        raw.Host.Domain,
		},
		Behaviour: raw.Behaviour,
		Session: SessionSettings{
			SessionTimeoutSeconds: raw.Session.SessionTimeoutSeconds,
			CookieName:            raw.Session.CookieName,
		},
		Logging: raw.Logging,
	}

	// An absent [host.bind] or [session] backend keeps the zero value:
	// plain TCP and the in-memory store respectively.
	if raw.Host.Bind != nil {
		if err := settings.Host.Bind.fromTOML(raw.Host.Bind); err != nil {
			return nil, apperror.NewConfig(fmt.Errorf("parsing config file %s: %w", path, err))
		}
	}
	if raw.Session.Backend != nil {
		if err := settings.Session.Backend.fromTOML(raw.Session.Backend); err != nil {
			return nil, apperror.NewConfig(fmt.Errorf("parsing config file %s: %w", path, err))
		}
	}

	applyEnvOverrides(&settings)

	if settings.Host.ClusterSecret == "" {
		return nil, apperror.NewConfig(fmt.Errorf("host.cluster_secret is required"))
	}
	if settings.Host.DatabaseURL == "" {
		return nil, apperror.NewConfig(fmt.Errorf("host.database_url is required"))
	}

	return &settings, nil
}

// applyEnvOverrides mutates settings in place from RUUTH_-prefixed
// environment variables. Only the fields an operator would plausibly need
// to override per-deployment (secrets, connection strings, bind address)
// are covered.
func applyEnvOverrides(s *Settings) {
	if v, ok := lookupEnv("RUUTH_HOST_CLUSTER_SECRET"); ok {
		s.Host.ClusterSecret = v
	}
	if v, ok := lookupEnv("RUUTH_HOST_DATABASE_URL"); ok {
		s.Host.DatabaseURL = v
	}
	if v, ok := lookupEnv("RUUTH_HOST_DOMAIN"); ok {
		s.Host.Domain = v
	}
	if v, ok := lookupEnv("RUUTH_HOST_REALM"); ok {
		s.Host.Realm = v
	}
	if v, ok := lookupEnv("RUUTH_HOST_BIND"); ok {
		s.Host.Bind = Bind{Kind: BindTCP, Addr: v}
	}
	if v, ok := lookupEnv("RUUTH_BEHAVIOUR_CAPTCHA"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			s.Behaviour.Captcha = &n
		}
	}
	if v, ok := lookupEnv("RUUTH_BEHAVIOUR_FAKE_LOGIN"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			s.Behaviour.FakeLogin = &n
		}
	}
	if v, ok := lookupEnv("RUUTH_BEHAVIOUR_EXPIRATION"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			s.Behaviour.Expiration = n
		}
	}
	if v, ok := lookupEnv("RUUTH_SESSION_COOKIE_NAME"); ok {
		s.Session.CookieName = &v
	}
	if v, ok := lookupEnv("RUUTH_SESSION_REDIS_URL"); ok {
		s.Session.Backend = SessionBackend{Kind: SessionRedis, RedisURL: v}
	}
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	return v, ok
}
