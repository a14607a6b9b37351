package envelope

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrBadFragment is returned when a share link's fragment cannot be
// parsed back into an id and transport key.
var ErrBadFragment = errors.New("envelope: malformed share fragment")

// EncodeFragment builds the URL fragment for a share link:
//
//	<id>:<base64url(key)>[:<base64url(salt)>]
//
// Browsers never send the fragment to any server, which is the privacy
// property the whole scheme rests on. The leading '#' is not included.
func EncodeFragment(id string, tk TransportKey) string {
	var b strings.Builder
	b.WriteString(id)
	b.WriteByte(':')
	b.WriteString(base64.RawURLEncoding.EncodeToString(tk.Key))
	if tk.Salt != nil {
		b.WriteByte(':')
		b.WriteString(base64.RawURLEncoding.EncodeToString(tk.Salt))
	}
	return b.String()
}

// ParseFragment inverts EncodeFragment. A leading '#' is tolerated.
func ParseFragment(fragment string) (id string, tk TransportKey, err error) {
	fragment = strings.TrimPrefix(fragment, "#")

	parts := strings.Split(fragment, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return "", TransportKey{}, ErrBadFragment
	}

	key, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil || len(key) != keySize {
		return "", TransportKey{}, ErrBadFragment
	}
	tk.Key = key

	if len(parts) == 3 {
		salt, err := base64.RawURLEncoding.DecodeString(parts[2])
		if err != nil || len(salt) != saltSize {
			return "", TransportKey{}, ErrBadFragment
		}
		tk.Salt = salt
	}

	return parts[0], tk, nil
}
