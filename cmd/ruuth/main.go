// Package main is the entry point for ruuth: an authentication decision
// service for reverse proxy auth_request deployments. Wires config
// loading, logging, persistence, and the HTTP server together, and
// dispatches to the admin CLI for out-of-band user management.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/outurnate/ruuth/internal/admincli"
	"github.com/outurnate/ruuth/internal/challenge"
	"github.com/outurnate/ruuth/internal/config"
	"github.com/outurnate/ruuth/internal/logging"
	"github.com/outurnate/ruuth/internal/ruuthdb"
	"github.com/outurnate/ruuth/internal/sessionstore"
	"github.com/outurnate/ruuth/internal/users"
	"github.com/outurnate/ruuth/internal/web"
)

func main() {
	a := &app{}
	root := admincli.NewRootCommand(a.boot, a.runServer)
	err := root.Execute()
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the process-lifetime resources boot opens, so main can release
// them after the command tree finishes (cobra owns the control flow in
// between).
type app struct {
	db         *ruuthdb.DB
	logCleanup func()
}

// boot loads the config file, configures logging, and connects the
// database. Called lazily by each subcommand after flag parsing, so
// --help and usage errors never need a config file or a reachable
// database.
func (a *app) boot(configPath string) (*admincli.Deps, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	cleanup, err := logging.Setup(developmentConsole(settings), loggingFileConfig(settings))
	if err != nil {
		return nil, fmt.Errorf("configuring logging: %w", err)
	}
	a.logCleanup = cleanup

	db, err := ruuthdb.Connect(context.Background(), settings.Host.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	a.db = db

	pepper := users.DerivePepper(settings.Host.ClusterSecret)
	return &admincli.Deps{
		Settings: settings,
		Users:    users.NewManager(db, settings.Host.Realm, pepper),
	}, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.logCleanup != nil {
		a.logCleanup()
	}
}

// developmentConsole selects pretty text console output when the
// configured console verbosity is debug/trace (an operator actively
// debugging), JSON otherwise -- the production default.
func developmentConsole(settings *config.Settings) bool {
	if settings.Logging == nil || settings.Logging.MinimumLevel == nil {
		return false
	}
	level := *settings.Logging.MinimumLevel
	return level == config.LogLevelDebug || level == config.LogLevelTrace
}

func loggingFileConfig(settings *config.Settings) *logging.FileConfig {
	if settings.Logging == nil || settings.Logging.File == "" {
		return nil
	}
	level := slog.LevelInfo
	if settings.Logging.MinimumLevel != nil {
		level = parseLevel(*settings.Logging.MinimumLevel)
	}
	return &logging.FileConfig{Path: settings.Logging.File, MinimumLevel: level}
}

func parseLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogLevelTrace, config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarning:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// runServer builds the challenge manager, session store, and web server,
// runs the session-store schema setup, starts the background ban-tracker
// and session GC tasks, and serves until SIGINT/SIGTERM.
func (a *app) runServer(ctx context.Context, settings *config.Settings, userManager *users.Manager) error {
	challengeManager := challenge.NewManager(a.db, settings.Behaviour.Captcha, settings.Behaviour.FakeLogin, settings.Behaviour.Expiration)

	sessionTTL := time.Duration(0)
	if settings.Session.SessionTimeoutSeconds != nil {
		sessionTTL = time.Duration(*settings.Session.SessionTimeoutSeconds) * time.Second
	}

	store, err := sessionstore.FromSettings(settings.Session, a.db, sessionTTL)
	if err != nil {
		return fmt.Errorf("constructing session store: %w", err)
	}

	signingKey := sessionstore.DeriveSigningKey(settings.Host.ClusterSecret)
	cookieName := ""
	if settings.Session.CookieName != nil {
		cookieName = *settings.Session.CookieName
	}
	sessionManager := sessionstore.NewManager(store, signingKey, cookieName, settings.Host.Domain, sessionTTL)

	server := web.New(userManager, challengeManager, sessionManager, settings.Host.Realm)

	if err := server.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating session store: %w", err)
	}

	banScheduler, err := challengeManager.StartCleanupTask(ctx)
	if err != nil {
		return fmt.Errorf("starting ban tracker cleanup task: %w", err)
	}
	defer banScheduler.Shutdown()

	sessionScheduler, err := sessionManager.StartCleanupTask(ctx)
	if err != nil {
		return fmt.Errorf("starting session cleanup task: %w", err)
	}
	defer sessionScheduler.Shutdown()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down ruuth...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced shutdown", slog.Any("error", err))
		}
	}()

	// The server runs alongside the two background schedulers, which run
	// until process exit and only report errors through their own job
	// logs (a background task error never terminates the process), so
	// the server's own return is what actually propagates here.
	// http.ErrServerClosed is the expected return from the graceful
	// Shutdown call above, not a fatal error; anything else (bind
	// conflict, bad TLS key pair, ...) must propagate so cmd/ruuth exits
	// non-zero.
	slog.Info("starting ruuth")
	if err := server.Run(settings.Host.Bind); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
