// Package ruuthdb is the persistence abstraction shared by the user manager
// and challenge manager: a uniform handle over SQLite/Postgres/MySQL,
// selected from a connection-string prefix and idempotently migrated on
// connect, with hand-written database/sql queries and sql.ErrNoRows
// mapped to apperror.NewNotFound.
package ruuthdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/outurnate/ruuth/internal/apperror"
)

// Backend identifies which SQL dialect the connection string selected.
// Kept distinct from the driver name so query-building (placeholder style,
// AUTOINCREMENT syntax) can branch on it.
type Backend int

const (
	MySQL Backend = iota
	Postgres
	SQLite
)

// DB is the persistence handle shared by the user manager, challenge
// manager, and (for the SQL session backend) the session store. It owns
// the connection pool; callers never touch *sql.DB's driver-specific
// behaviour directly.
type DB struct {
	Backend Backend
	Pool    *sql.DB
}

// Connect dispatches on the connection string's scheme prefix, opens a
// pool, idempotently creates the user and ban_tracker tables, and retries
// the initial ping with exponential backoff -- a freshly started container
// database may not be accepting connections yet.
func Connect(ctx context.Context, connectionString string) (*DB, error) {
	backend, driverName, dsn, err := dispatch(connectionString)
	if err != nil {
		return nil, apperror.NewConfig(err)
	}

	pool, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, apperror.NewConfig(fmt.Errorf("opening %s connection: %w", driverName, err))
	}

	if err := pingWithRetry(ctx, pool, driverName); err != nil {
		pool.Close()
		return nil, apperror.NewConfig(err)
	}

	db := &DB{Backend: backend, Pool: pool}
	if err := db.createTables(ctx); err != nil {
		pool.Close()
		return nil, apperror.NewConfig(fmt.Errorf("creating tables: %w", err))
	}

	return db, nil
}

// dispatch maps a mysql://, postgres://, or sqlite:// connection string to
// a Backend, a database/sql driver name, and the DSN that driver expects.
func dispatch(connectionString string) (Backend, string, string, error) {
	switch {
	case strings.HasPrefix(connectionString, "mysql://"):
		return MySQL, "mysql", strings.TrimPrefix(connectionString, "mysql://"), nil
	case strings.HasPrefix(connectionString, "postgres://"), strings.HasPrefix(connectionString, "postgresql://"):
		return Postgres, "pgx", connectionString, nil
	case strings.HasPrefix(connectionString, "sqlite://"):
		return SQLite, "sqlite", strings.TrimPrefix(connectionString, "sqlite://"), nil
	default:
		return 0, "", "", fmt.Errorf("unrecognized database_url scheme: %s", connectionString)
	}
}

// pingWithRetry retries the initial ping with exponential backoff.
func pingWithRetry(ctx context.Context, pool *sql.DB, driverName string) error {
	const maxRetries = 10
	backoff := 1 * time.Second
	var pingErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pingErr = pool.PingContext(pingCtx)
		cancel()

		if pingErr == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}

		slog.Warn(driverName+" not ready, retrying...",
			slog.Int("attempt", attempt),
			slog.Int("max_retries", maxRetries),
			slog.Duration("backoff", backoff),
			slog.Any("error", pingErr),
		)
		time.Sleep(backoff)
		backoff = min(backoff*2, 30*time.Second)
	}

	return fmt.Errorf("pinging %s after %d attempts: %w", driverName, maxRetries, pingErr)
}

// createTables idempotently creates the user and ban_tracker tables. Not a
// migration framework: every connect reissues the same CREATE TABLE IF NOT
// EXISTS statements. The DDL is spelled per dialect: "user" is a reserved
// word in Postgres (and BLOB is spelled BYTEA there), and MySQL cannot key
// on an unsized TEXT column.
func (db *DB) createTables(ctx context.Context) error {
	var userTable, banTable string
	switch db.Backend {
	case MySQL:
		userTable = "CREATE TABLE IF NOT EXISTS `user` (" + `
			username VARCHAR(255) PRIMARY KEY,
			password_hash TEXT NOT NULL,
			totp_secret BLOB NOT NULL
		)`
		banTable = `CREATE TABLE IF NOT EXISTS ban_tracker (
			id BIGINT PRIMARY KEY AUTO_INCREMENT,
			host VARCHAR(255) NOT NULL,
			failure_timestamp BIGINT NOT NULL
		)`
	case Postgres:
		userTable = `CREATE TABLE IF NOT EXISTS "user" (
			username TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			totp_secret BYTEA NOT NULL
		)`
		banTable = `CREATE TABLE IF NOT EXISTS ban_tracker (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			host TEXT NOT NULL,
			failure_timestamp BIGINT NOT NULL
		)`
	default:
		userTable = `CREATE TABLE IF NOT EXISTS user (
			username TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			totp_secret BLOB NOT NULL
		)`
		banTable = `CREATE TABLE IF NOT EXISTS ban_tracker (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			host TEXT NOT NULL,
			failure_timestamp INTEGER NOT NULL
		)`
	}

	if _, err := db.Pool.ExecContext(ctx, userTable); err != nil {
		return fmt.Errorf("creating user table: %w", err)
	}
	if _, err := db.Pool.ExecContext(ctx, banTable); err != nil {
		return fmt.Errorf("creating ban_tracker table: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	return db.Pool.Close()
}

// Placeholder returns the positional-parameter placeholder for argument
// index n (1-based), since Postgres uses $1, $2... while MySQL/SQLite use ?.
// Exported so sibling packages sharing this pool (the SQL session store)
// can build parameterized queries consistently with the rest of ruuthdb.
func (db *DB) Placeholder(n int) string {
	if db.Backend == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// userTable returns the user table name quoted for the backend's dialect.
// Unquoted, Postgres resolves "user" to the current-role function instead
// of the table.
func (db *DB) userTable() string {
	switch db.Backend {
	case Postgres:
		return `"user"`
	case MySQL:
		return "`user`"
	default:
		return "user"
	}
}
