package sessionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/outurnate/ruuth/internal/ruuthdb"
)

// SQLStore persists sessions as JSON blobs in a table on the same pool the
// user/ban-tracker tables live on, so a SQL deployment needs only one
// database. A single hand-written table works across all three dialects
// since ruuthdb.DB already abstracts the placeholder syntax.
type SQLStore struct {
	db  *ruuthdb.DB
	ttl time.Duration
}

// NewSQLStore constructs a SQL-backed session store over db's pool.
func NewSQLStore(db *ruuthdb.DB, ttl time.Duration) *SQLStore {
	return &SQLStore{db: db, ttl: ttl}
}

func (s *SQLStore) Migrate(ctx context.Context) error {
	// MySQL cannot key on an unsized TEXT column.
	idType := "TEXT"
	if s.db.Backend == ruuthdb.MySQL {
		idType = "VARCHAR(255)"
	}
	_, err := s.db.Pool.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS ruuth_session (
		id `+idType+` PRIMARY KEY,
		data TEXT NOT NULL,
		expires_at BIGINT NOT NULL
	)`)
	return err
}

func (s *SQLStore) Cleanup(ctx context.Context) error {
	query := fmt.Sprintf("DELETE FROM ruuth_session WHERE expires_at < %s", s.db.Placeholder(1))
	_, err := s.db.Pool.ExecContext(ctx, query, time.Now().UTC().Unix())
	return err
}

func (s *SQLStore) Load(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return &Session{}, nil
	}

	query := fmt.Sprintf("SELECT data, expires_at FROM ruuth_session WHERE id = %s", s.db.Placeholder(1))
	var data string
	var expiresAt int64
	err := s.db.Pool.QueryRowContext(ctx, query, id).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if s.ttl > 0 && expiresAt < time.Now().UTC().Unix() {
		return &Session{}, nil
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("unmarshaling session: %w", err)
	}
	return &sess, nil
}

func (s *SQLStore) Save(ctx context.Context, id string, sess *Session) (string, error) {
	if id == "" {
		newID, err := newSessionID()
		if err != nil {
			return "", err
		}
		id = newID
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("marshaling session: %w", err)
	}
	expiresAt := s.expiresAt()

	if err := s.upsert(ctx, id, string(data), expiresAt); err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLStore) Regenerate(ctx context.Context, oldID string, sess *Session) (string, error) {
	newID, err := newSessionID()
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("marshaling session: %w", err)
	}

	if oldID != "" {
		deleteQuery := fmt.Sprintf("DELETE FROM ruuth_session WHERE id = %s", s.db.Placeholder(1))
		if _, err := s.db.Pool.ExecContext(ctx, deleteQuery, oldID); err != nil {
			return "", fmt.Errorf("deleting old session: %w", err)
		}
	}

	if err := s.upsert(ctx, newID, string(data), s.expiresAt()); err != nil {
		return "", err
	}
	return newID, nil
}

func (s *SQLStore) upsert(ctx context.Context, id, data string, expiresAt int64) error {
	// Portable upsert: delete then insert, rather than relying on
	// dialect-specific ON CONFLICT/ON DUPLICATE KEY syntax.
	deleteQuery := fmt.Sprintf("DELETE FROM ruuth_session WHERE id = %s", s.db.Placeholder(1))
	if _, err := s.db.Pool.ExecContext(ctx, deleteQuery, id); err != nil {
		return fmt.Errorf("clearing prior session row: %w", err)
	}

	insertQuery := fmt.Sprintf(
		"INSERT INTO ruuth_session (id, data, expires_at) VALUES (%s, %s, %s)",
		s.db.Placeholder(1), s.db.Placeholder(2), s.db.Placeholder(3),
	)
	if _, err := s.db.Pool.ExecContext(ctx, insertQuery, id, data, expiresAt); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (s *SQLStore) expiresAt() int64 {
	ttl := s.ttl
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return time.Now().UTC().Add(ttl).Unix()
}
