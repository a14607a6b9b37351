package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Needs a local Redis; skipped when none is listening.
func newTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	store, err := NewRedisStore(&redis.Options{
		Addr:     "localhost:6379",
		Password: "",
		DB:       0,
	})
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	return store
}

func TestRedisConsumeOnce(t *testing.T) {
	store := newTestRedis(t)
	defer store.Close()
	ctx := context.Background()

	id := GenerateID()
	if err := store.Create(ctx, testSecret(id, time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.Consume(ctx, id)
	if err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if string(got.Ciphertext) != "ciphertext" {
		t.Fatalf("ciphertext mismatch: %q", got.Ciphertext)
	}

	if _, err := store.Consume(ctx, id); err != ErrNotAvailable {
		t.Fatalf("second consume: want ErrNotAvailable, got %v", err)
	}
}

func TestRedisCreateRejectsPastExpiry(t *testing.T) {
	store := newTestRedis(t)
	defer store.Close()

	if err := store.Create(context.Background(), testSecret(GenerateID(), -time.Hour)); err != ErrNotAvailable {
		t.Fatalf("want ErrNotAvailable, got %v", err)
	}
}

func TestRedisBurnMatchSemantics(t *testing.T) {
	store := newTestRedis(t)
	defer store.Close()
	ctx := context.Background()

	id := GenerateID()
	if err := store.Create(ctx, testSecret(id, time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.Burn(ctx, id, "wrong-token"); err != nil {
		t.Fatalf("burn wrong token: %v", err)
	}
	if _, err := store.Consume(ctx, id); err != nil {
		t.Fatalf("record should survive wrong-token burn: %v", err)
	}

	id2 := GenerateID()
	if err := store.Create(ctx, testSecret(id2, time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Burn(ctx, id2, "burn-"+id2); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if _, err := store.Consume(ctx, id2); err != ErrNotAvailable {
		t.Fatalf("record should be gone after burn, got %v", err)
	}

	if err := store.Burn(ctx, "no-such-id", "anything"); err != nil {
		t.Fatalf("burn of nonexistent id: %v", err)
	}
}
