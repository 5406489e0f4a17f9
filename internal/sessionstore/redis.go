package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces every session key in Redis ("session:"+token).
const redisKeyPrefix = "session:"

// RedisStore persists sessions in Redis with a configured TTL, as a
// key-prefix-plus-JSON-payload pair per session.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore constructs a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Migrate(ctx context.Context) error { return nil }
func (r *RedisStore) Cleanup(ctx context.Context) error { return nil }

func (r *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return &Session{}, nil
	}

	data, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return &Session{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session from redis: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshaling session: %w", err)
	}
	return &sess, nil
}

func (r *RedisStore) Save(ctx context.Context, id string, sess *Session) (string, error) {
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

	if err := r.client.Set(ctx, redisKeyPrefix+id, data, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("storing session in redis: %w", err)
	}
	return id, nil
}

func (r *RedisStore) Regenerate(ctx context.Context, oldID string, sess *Session) (string, error) {
	newID, err := newSessionID()
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("marshaling session: %w", err)
	}

	pipe := r.client.TxPipeline()
	if oldID != "" {
		pipe.Del(ctx, redisKeyPrefix+oldID)
	}
	pipe.Set(ctx, redisKeyPrefix+newID, data, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("regenerating session in redis: %w", err)
	}

	return newID, nil
}
