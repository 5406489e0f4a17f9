package sessionstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisTestStore(t *testing.T, ttl time.Duration) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, ttl)
}

func TestRedisStore_LoadMissingReturnsFreshSession(t *testing.T) {
	store := newRedisTestStore(t, time.Hour)
	sess, err := store.Load(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sess.LoggedIn {
		t.Error("expected a fresh session for an unknown id")
	}
}

func TestRedisStore_SaveAndLoad_RoundTrip(t *testing.T) {
	store := newRedisTestStore(t, time.Hour)
	ctx := context.Background()

	id, err := store.Save(ctx, "", &Session{LoggedIn: true})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a freshly minted session id")
	}

	loaded, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !loaded.LoggedIn {
		t.Error("expected the loaded session to preserve LoggedIn=true")
	}
}

func TestRedisStore_Regenerate_DeletesOldKey(t *testing.T) {
	store := newRedisTestStore(t, time.Hour)
	ctx := context.Background()

	oldID, err := store.Save(ctx, "", &Session{LoggedIn: false})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	newID, err := store.Regenerate(ctx, oldID, &Session{LoggedIn: true})
	if err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}
	if newID == oldID {
		t.Fatal("expected a different id after regeneration")
	}

	oldLoaded, err := store.Load(ctx, oldID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if oldLoaded.LoggedIn {
		t.Error("expected the old session key to be deleted by Regenerate")
	}

	newLoaded, err := store.Load(ctx, newID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !newLoaded.LoggedIn {
		t.Error("expected the regenerated id to carry the new payload")
	}
}

// TestRedisStore_TTLExpiry advances miniredis's clock rather than
// sleeping: miniredis only expires keys on FastForward.
func TestRedisStore_TTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := NewRedisStore(client, time.Second)
	ctx := context.Background()

	id, err := store.Save(ctx, "", &Session{LoggedIn: true})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	mr.FastForward(2 * time.Second)

	loaded, err := store.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.LoggedIn {
		t.Error("expected the key to have expired from redis after its TTL elapsed")
	}
}
