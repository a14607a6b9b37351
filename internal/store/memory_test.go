package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"sealed.fyi/internal/models"
)

func testSecret(id string, ttl time.Duration) *models.Secret {
	now := time.Now()
	return &models.Secret{
		ID:         id,
		Ciphertext: []byte("ciphertext"),
		IV:         []byte("012345678901"),
		AuthTag:    []byte("0123456789012345"),
		BurnToken:  "burn-" + id,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}
}

func TestMemoryConsumeOnce(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	if err := s.Create(ctx, testSecret("a", time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Consume(ctx, "a")
	if err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if string(got.Ciphertext) != "ciphertext" || !got.Consumed {
		t.Fatalf("unexpected record: %+v", got)
	}

	if _, err := s.Consume(ctx, "a"); err != ErrNotAvailable {
		t.Fatalf("second consume: want ErrNotAvailable, got %v", err)
	}
}

func TestMemoryConcurrentConsumeExactlyOneWinner(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	const readers = 32
	for round := 0; round < 50; round++ {
		id := GenerateID()
		if err := s.Create(ctx, testSecret(id, time.Hour)); err != nil {
			t.Fatalf("create: %v", err)
		}

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		start := make(chan struct{})
		for i := 0; i < readers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if _, err := s.Consume(ctx, id); err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		close(start)
		wg.Wait()

		if wins != 1 {
			t.Fatalf("round %d: %d consumers succeeded, want exactly 1", round, wins)
		}
	}
}

func TestMemoryExpiredIsAbsentEvenIfPresent(t *testing.T) {
	// Cleanup interval is an hour, so the expired record stays
	// physically stored for the whole test.
	s := NewMemoryStore(time.Hour)
	defer s.Close()
	ctx := context.Background()

	if err := s.Create(ctx, testSecret("stale", -time.Second)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Consume(ctx, "stale"); err != ErrNotAvailable {
		t.Fatalf("want ErrNotAvailable for expired record, got %v", err)
	}
}

func TestMemoryBurnUniformResult(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	defer s.Close()
	ctx := context.Background()

	if err := s.Create(ctx, testSecret("b", time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Wrong token: same nil result, record survives.
	if err := s.Burn(ctx, "b", "wrong"); err != nil {
		t.Fatalf("burn with wrong token: %v", err)
	}
	if _, err := s.Consume(ctx, "b"); err != nil {
		t.Fatalf("record should have survived wrong-token burn: %v", err)
	}

	if err := s.Create(ctx, testSecret("c", time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Correct token: same nil result, record gone.
	if err := s.Burn(ctx, "c", "burn-c"); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if _, err := s.Consume(ctx, "c"); err != ErrNotAvailable {
		t.Fatalf("record should be gone after burn, got %v", err)
	}

	// Nonexistent id and empty token: still nil.
	if err := s.Burn(ctx, "never-existed", ""); err != nil {
		t.Fatalf("burn of nonexistent id: %v", err)
	}
}
