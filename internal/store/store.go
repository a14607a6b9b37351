package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"

	"sealed.fyi/internal/models"
)

// ErrNotAvailable covers not-found, expired, and already-consumed
// uniformly. The store never tells callers which; that uniformity is a
// security control, not a convenience.
var ErrNotAvailable = errors.New("secret not available")

const idLength = 16

// Store is the secret lifecycle state machine. Consume and Burn are the
// two conditional writes; both must be atomic against the backing store,
// never a read-then-write split across round trips.
type Store interface {
	// Create inserts a new record. The caller supplies a fresh ID.
	Create(ctx context.Context, secret *models.Secret) error

	// Consume atomically checks not-expired-and-not-consumed, marks the
	// record consumed, and returns it. Exactly one of any set of
	// concurrent calls for the same id succeeds; the rest get
	// ErrNotAvailable.
	Consume(ctx context.Context, id string) (*models.Secret, error)

	// Burn deletes the record iff burnToken matches the stored one. It
	// returns nil whether or not the record existed or the token
	// matched; only backend transport failures surface.
	Burn(ctx context.Context, id, burnToken string) error

	Close() error
}

// GenerateID returns a high-entropy opaque identifier. The id is the
// retrieval capability, so it must be unguessable.
func GenerateID() string {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
