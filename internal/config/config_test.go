package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ruuth.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing test config: %v", err)
	}
	return path
}

func TestLoad_MinimalValidConfig(t *testing.T) {
	path := writeConfig(t, `
[host]
cluster_secret = "super-secret"
database_url = "sqlite://ruuth.db"

[behaviour]
expiration = 60
`)

	settings, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.Host.ClusterSecret != "super-secret" {
		t.Errorf("unexpected cluster secret: %q", settings.Host.ClusterSecret)
	}
	if settings.Behaviour.Expiration != 60 {
		t.Errorf("unexpected expiration: %d", settings.Behaviour.Expiration)
	}
	if settings.Session.Backend.Kind != SessionInMemory {
		t.Errorf("expected the default session backend to be in-memory, got %d", settings.Session.Backend.Kind)
	}
}

func TestLoad_MissingClusterSecret(t *testing.T) {
	path := writeConfig(t, `
[host]
database_url = "sqlite://ruuth.db"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error when host.cluster_secret is missing")
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	path := writeConfig(t, `
[host]
cluster_secret = "super-secret"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error when host.database_url is missing")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestLoad_BindVariants(t *testing.T) {
	tests := []struct {
		name   string
		toml   string
		kind   BindKind
		addr   string
		path   string
		pubKey string
	}{
		{
			name: "tcp",
			toml: `[host.bind]
type = "tcp"
bind = "0.0.0.0:8080"`,
			kind: BindTCP,
			addr: "0.0.0.0:8080",
		},
		{
			name: "tls",
			toml: `[host.bind]
type = "tls"
bind = "0.0.0.0:8443"
public_key = "cert.pem"
private_key = "key.pem"`,
			kind:   BindTLS,
			addr:   "0.0.0.0:8443",
			pubKey: "cert.pem",
		},
		{
			name: "unix",
			toml: `[host.bind]
type = "unix"
path = "/run/ruuth.sock"`,
			kind: BindUnix,
			path: "/run/ruuth.sock",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "[host]\ncluster_secret = \"s\"\ndatabase_url = \"sqlite://x.db\"\n\n"+tt.toml)
			settings, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if settings.Host.Bind.Kind != tt.kind {
				t.Errorf("expected kind %d, got %d", tt.kind, settings.Host.Bind.Kind)
			}
			if settings.Host.Bind.Addr != tt.addr {
				t.Errorf("expected addr %q, got %q", tt.addr, settings.Host.Bind.Addr)
			}
			if settings.Host.Bind.Path != tt.path {
				t.Errorf("expected path %q, got %q", tt.path, settings.Host.Bind.Path)
			}
			if settings.Host.Bind.PublicKey != tt.pubKey {
				t.Errorf("expected public key %q, got %q", tt.pubKey, settings.Host.Bind.PublicKey)
			}
		})
	}
}

func TestLoad_SessionBackendVariants(t *testing.T) {
	redisPath := writeConfig(t, `
[host]
cluster_secret = "s"
database_url = "sqlite://x.db"

[session]
backend = { type = "redis", url = "redis://localhost:6379" }
`)
	settings, err := Load(redisPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.Session.Backend.Kind != SessionRedis {
		t.Errorf("expected Redis backend, got %d", settings.Session.Backend.Kind)
	}
	if settings.Session.Backend.RedisURL != "redis://localhost:6379" {
		t.Errorf("unexpected redis url: %q", settings.Session.Backend.RedisURL)
	}

	sqlPath := writeConfig(t, `
[host]
cluster_secret = "s"
database_url = "sqlite://x.db"

[session]
backend = "sql"
`)
	settings, err = Load(sqlPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.Session.Backend.Kind != SessionSQL {
		t.Errorf("expected SQL backend, got %d", settings.Session.Backend.Kind)
	}
}

func TestLoad_EnvOverridesTakePrecedence(t *testing.T) {
	path := writeConfig(t, `
[host]
cluster_secret = "file-secret"
database_url = "sqlite://file.db"
`)

	t.Setenv("RUUTH_HOST_CLUSTER_SECRET", "env-secret")
	t.Setenv("RUUTH_HOST_DATABASE_URL", "postgres://env/db")
	t.Setenv("RUUTH_BEHAVIOUR_CAPTCHA", "3")
	t.Setenv("RUUTH_BEHAVIOUR_EXPIRATION", "45")

	settings, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.Host.ClusterSecret != "env-secret" {
		t.Errorf("expected env override of cluster secret, got %q", settings.Host.ClusterSecret)
	}
	if settings.Host.DatabaseURL != "postgres://env/db" {
		t.Errorf("expected env override of database url, got %q", settings.Host.DatabaseURL)
	}
	if settings.Behaviour.Captcha == nil || *settings.Behaviour.Captcha != 3 {
		t.Errorf("expected env override of captcha threshold, got %+v", settings.Behaviour.Captcha)
	}
	if settings.Behaviour.Expiration != 45 {
		t.Errorf("expected env override of expiration, got %d", settings.Behaviour.Expiration)
	}
}
