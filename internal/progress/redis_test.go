package progress

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
)

// newTestRedisStore connects to REDIS_TEST_URL under a throwaway key that is
// deleted when the test ends.
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("Skipping redis test: REDIS_TEST_URL not set")
	}
	store, err := NewRedisStore(url, "pv-reviews:test:"+uuid.NewString())
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	ctx := context.Background()
	if err := store.client.Ping(ctx).Err(); err != nil {
		t.Fatalf("redis not reachable at %s: %v", url, err)
	}
	t.Cleanup(func() {
		store.client.Del(context.Background(), store.key)
		store.Close()
	})
	return store
}

func TestNewRedisStore_BadURL(t *testing.T) {
	if _, err := NewRedisStore("http://localhost:6379", "k"); err == nil {
		t.Error("expected error for non-redis url")
	}
}

func TestRedisStore_LoadMissingKey(t *testing.T) {
	store := newTestRedisStore(t)

	s, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(s) != 0 {
		t.Errorf("expected empty set, got %v", s.Sorted())
	}
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, NewSet()); err != nil {
		t.Fatalf("Save of empty set failed: %v", err)
	}
	if n := store.client.Exists(ctx, store.key).Val(); n != 0 {
		t.Errorf("expected empty save to leave key absent, exists=%d", n)
	}

	if err := store.Save(ctx, NewSet("R2", "R1")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	// a later save with fewer ids never drops members
	if err := store.Save(ctx, NewSet("R3")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := []string{"R1", "R2", "R3"}
	sorted := got.Sorted()
	if len(sorted) != len(want) {
		t.Fatalf("expected %v, got %v", want, sorted)
	}
	for i := range want {
		if sorted[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, sorted)
		}
	}
}

func TestRedisStore_CanceledContext(t *testing.T) {
	store := newTestRedisStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Load(ctx); err == nil {
		t.Error("expected Load to fail on a canceled context")
	}
	if err := store.Save(ctx, NewSet("R1")); err == nil {
		t.Error("expected Save to fail on a canceled context")
	}
}
