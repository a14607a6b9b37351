// Package token issues and validates the creation tokens that gate
// secret creation. Tokens are stateless signed values: validity is a
// signature plus expiry check, never a server-side lookup, so the issuer
// scales horizontally without a shared challenge or session table.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"sealed.fyi/internal/pow"
)

const nonceLength = 16

// ErrRejected covers every redeem failure: wrong nonce, insufficient
// difficulty, malformed solution. One error for all of them, so the
// response cannot be used to calibrate attacks against the puzzle cost.
var ErrRejected = errors.New("token: rejected")

// ErrInvalid covers every validation failure: bad signature, expired,
// malformed, forged. Callers surface it as a generic 401.
var ErrInvalid = errors.New("token: invalid")

// Issuer hands out proof-of-work challenges and redeems solutions for
// signed creation tokens. The signing key is process-wide and read-only
// after construction.
type Issuer struct {
	prefix     string
	difficulty int
	ttl        time.Duration
	signingKey []byte
	issuer     string
}

func NewIssuer(prefix string, difficulty int, ttl time.Duration, signingKey []byte) *Issuer {
	return &Issuer{
		prefix:     prefix,
		difficulty: difficulty,
		ttl:        ttl,
		signingKey: signingKey,
		issuer:     "sealed.fyi",
	}
}

// Challenge returns a fresh challenge with a random nonce. No
// per-challenge state is retained.
func (i *Issuer) Challenge() pow.Challenge {
	nonce := make([]byte, nonceLength)
	if _, err := rand.Read(nonce); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return pow.Challenge{
		Prefix:     i.prefix,
		Nonce:      base64.RawURLEncoding.EncodeToString(nonce),
		Difficulty: i.difficulty,
	}
}

// Redeem verifies a solution against the issuer's configured prefix and
// difficulty and, on success, returns a signed token and its expiry.
// Trusting the client-echoed nonce is sound here: a self-minted nonce
// still costs the full hash search, which is the only property the gate
// needs.
func (i *Issuer) Redeem(nonce string, counter uint64) (string, time.Time, error) {
	ch := pow.Challenge{Prefix: i.prefix, Nonce: nonce, Difficulty: i.difficulty}
	if !pow.Verify(ch, counter) {
		return "", time.Time{}, ErrRejected
	}

	now := time.Now()
	exp := now.Add(i.ttl)
	claims := jwt.MapClaims{
		"iss": i.issuer,
		"jti": nonce,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.signingKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Validate checks signature and expiry only; there is no revocation
// list. Single logical use is enforced by the short TTL.
func (i *Issuer) Validate(tokenString string) error {
	keyFunc := func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalid
		}
		return i.signingKey, nil
	}

	tok, err := jwt.Parse(tokenString, keyFunc,
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return ErrInvalid
	}
	return nil
}
