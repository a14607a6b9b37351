package store

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"sealed.fyi/internal/models"
)

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps records in a mutex-guarded map. The single lock is
// what makes Consume and Burn atomic here; the cleanup loop is hygiene
// only, expiry is always re-checked on the request path.
type MemoryStore struct {
	secrets       map[string]*models.Secret
	mu            sync.Mutex
	cleanupCancel context.CancelFunc
}

func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	ctx, cancel := context.WithCancel(context.Background())
	store := &MemoryStore{
		secrets:       make(map[string]*models.Secret),
		cleanupCancel: cancel,
	}
	go store.cleanupLoop(ctx, cleanupInterval)
	return store
}

func (s *MemoryStore) Create(ctx context.Context, secret *models.Secret) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.secrets[secret.ID] = secret
	return nil
}

func (s *MemoryStore) Consume(ctx context.Context, id string) (*models.Secret, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	secret, ok := s.secrets[id]
	if !ok || secret.Gone(time.Now()) {
		return nil, ErrNotAvailable
	}

	secret.Consumed = true
	delete(s.secrets, id)
	return secret, nil
}

func (s *MemoryStore) Burn(ctx context.Context, id, burnToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	secret, ok := s.secrets[id]
	if !ok {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(secret.BurnToken), []byte(burnToken)) == 1 {
		delete(s.secrets, id)
	}
	return nil
}

func (s *MemoryStore) Close() error {
	if s.cleanupCancel != nil {
		s.cleanupCancel()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.secrets = nil
	return nil
}

func (s *MemoryStore) cleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, secret := range s.secrets {
		if secret.Gone(now) {
			delete(s.secrets, id)
		}
	}
}
