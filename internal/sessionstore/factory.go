package sessionstore

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/outurnate/ruuth/internal/config"
	"github.com/outurnate/ruuth/internal/ruuthdb"
)

// FromSettings builds the configured Store by dispatching on the session
// backend tagged union ({InMemory, Sql, Redis(url)}). db is the
// already-connected persistence handle, reused for the SQL backend so a
// SQL deployment needs only one database connection.
func FromSettings(settings config.SessionSettings, db *ruuthdb.DB, ttl time.Duration) (Store, error) {
	switch settings.Backend.Kind {
	case config.SessionInMemory:
		return NewMemoryStore(ttl), nil
	case config.SessionSQL:
		return NewSQLStore(db, ttl), nil
	case config.SessionRedis:
		opts, err := redis.ParseURL(settings.Backend.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing session redis url: %w", err)
		}
		return NewRedisStore(redis.NewClient(opts), ttl), nil
	default:
		return nil, fmt.Errorf("unknown session backend kind %d", settings.Backend.Kind)
	}
}
