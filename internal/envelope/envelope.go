// Package envelope implements the client-side encryption scheme. The
// server only ever sees the sealed output; the transport key travels in
// the URL fragment and never crosses the wire.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keySize   = 32 // AES-256
	ivSize    = 12 // GCM standard nonce size
	tagSize   = 16
	saltSize  = 16
	kdfRounds = 100_000
)

// ErrAuthentication is returned for any tag mismatch on Open. Decryption
// fails closed: no partial plaintext is ever returned.
var ErrAuthentication = errors.New("envelope: message authentication failed")

// Sealed is the server-visible portion of an encrypted secret. All three
// fields are opaque to the server.
type Sealed struct {
	Ciphertext []byte
	IV         []byte
	AuthTag    []byte
}

// TransportKey is the client-held material needed to open a Sealed
// payload: the raw content key plus, when a passphrase was used, the KDF
// salt. It exists only in client memory and the shared link.
type TransportKey struct {
	Key  []byte
	Salt []byte // nil unless passphrase-enhanced
}

// Encrypt seals plaintext under a fresh random 256-bit content key with
// AES-256-GCM (96-bit random IV, 128-bit tag).
//
// With a non-empty passphrase the effective AEAD key is the XOR fold of
// the content key and PBKDF2-SHA256(passphrase, salt, 100000 rounds):
// opening then requires both the link fragment and the passphrase, and
// losing either makes the secret irrecoverable.
func Encrypt(plaintext []byte, passphrase string) (Sealed, TransportKey, error) {
	tk := TransportKey{Key: randBytes(keySize)}

	key := tk.Key
	if passphrase != "" {
		tk.Salt = randBytes(saltSize)
		key = foldKey(tk.Key, passphrase, tk.Salt)
	}

	aead, err := newAEAD(key)
	if err != nil {
		return Sealed{}, TransportKey{}, err
	}

	iv := randBytes(ivSize)
	sealed := aead.Seal(nil, iv, plaintext, nil)

	// GCM appends the tag; the wire format carries it as its own field.
	split := len(sealed) - tagSize
	return Sealed{
		Ciphertext: sealed[:split],
		IV:         iv,
		AuthTag:    sealed[split:],
	}, tk, nil
}

// Open reverses Encrypt. A missing passphrase for a passphrase-enhanced
// key, or any tampering with ciphertext, IV, or tag, yields
// ErrAuthentication.
func Open(s Sealed, tk TransportKey, passphrase string) ([]byte, error) {
	if len(tk.Key) != keySize {
		return nil, fmt.Errorf("envelope: transport key must be %d bytes", keySize)
	}
	if len(s.IV) != ivSize {
		return nil, ErrAuthentication
	}

	key := tk.Key
	if tk.Salt != nil {
		key = foldKey(tk.Key, passphrase, tk.Salt)
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(s.Ciphertext)+len(s.AuthTag))
	sealed = append(sealed, s.Ciphertext...)
	sealed = append(sealed, s.AuthTag...)

	plaintext, err := aead.Open(nil, s.IV, sealed, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("envelope: cipher creation failed: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("envelope: GCM creation failed: %w", err)
	}
	return aead, nil
}

func foldKey(contentKey []byte, passphrase string, salt []byte) []byte {
	derived := pbkdf2.Key([]byte(passphrase), salt, kdfRounds, keySize, sha256.New)
	folded := make([]byte, keySize)
	for i := range folded {
		folded[i] = contentKey[i] ^ derived[i]
	}
	return folded
}

func randBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return b
}
