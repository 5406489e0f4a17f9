package sessionstore

import (
	"context"
	"sync"
	"time"
)

// memoryEntry pairs a stored Session with its expiry, mirroring SQLStore's
// expires_at column so the default in-memory backend honors
// session_timeout_seconds the same way the SQL and Redis backends do.
type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// MemoryStore is the in-memory Store backend: entries live as long as the
// process and are never written to disk, but track an expiry per entry so
// a configured TTL is still enforced -- SessionInMemory is the zero-value
// default backend, so this is the path most deployments exercise.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	ttl      time.Duration
}

// NewMemoryStore constructs an empty in-memory store. A zero ttl means
// entries never expire on their own (cookie-driven lifetime only).
// SQLStore.Load likewise skips its expiry check when ttl <= 0, but
// SQLStore.Cleanup still removes such rows 24 hours after their last save.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memoryEntry), ttl: ttl}
}

func (m *MemoryStore) Load(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return &Session{}, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[id]
	if !ok {
		return &Session{}, nil
	}
	if m.ttl > 0 && time.Now().UTC().After(entry.expiresAt) {
		delete(m.sessions, id)
		return &Session{}, nil
	}
	cp := entry.session
	return &cp, nil
}

func (m *MemoryStore) Save(ctx context.Context, id string, sess *Session) (string, error) {
	if id == "" {
		newID, err := newSessionID()
		if err != nil {
			return "", err
		}
		id = newID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = memoryEntry{session: *sess, expiresAt: m.expiresAt()}
	return id, nil
}

func (m *MemoryStore) Regenerate(ctx context.Context, oldID string, sess *Session) (string, error) {
	newID, err := newSessionID()
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	delete(m.sessions, oldID)
	m.sessions[newID] = memoryEntry{session: *sess, expiresAt: m.expiresAt()}
	m.mu.Unlock()

	return newID, nil
}

func (m *MemoryStore) Migrate(ctx context.Context) error { return nil }

// Cleanup evicts expired entries. A no-op when no TTL is configured --
// entries live until the process exits, same as before.
func (m *MemoryStore) Cleanup(ctx context.Context) error {
	if m.ttl <= 0 {
		return nil
	}
	now := time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, entry := range m.sessions {
		if now.After(entry.expiresAt) {
			delete(m.sessions, id)
		}
	}
	return nil
}

func (m *MemoryStore) expiresAt() time.Time {
	ttl := m.ttl
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return time.Now().UTC().Add(ttl)
}
