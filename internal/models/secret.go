package models

import "time"

// Secret is the server-durable record of one sealed payload. Ciphertext,
// IV, and AuthTag are opaque to the server; the transport key needed to
// open them never reaches it. Once Consumed or past ExpiresAt the record
// is logically absent: retrieval and deletion must treat it exactly like
// a record that never existed.
type Secret struct {
	ID         string    `json:"id"`
	Ciphertext []byte    `json:"-"`
	IV         []byte    `json:"-"`
	AuthTag    []byte    `json:"-"`
	BurnToken  string    `json:"-"` // creator-held credential for early deletion
	Consumed   bool      `json:"-"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Gone reports whether the record is logically absent at the given time.
func (s *Secret) Gone(now time.Time) bool {
	return s.Consumed || now.After(s.ExpiresAt)
}
