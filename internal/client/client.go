// Package client implements the caller's side of the secret-exchange
// protocol: solve the issuance puzzle, redeem it for a creation token,
// seal the payload locally, and exchange only ciphertext with the
// server. The transport key stays in the share link's fragment.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sealed.fyi/internal/envelope"
	"sealed.fyi/internal/pow"
)

// ErrNotAvailable is returned when the server reports the secret gone,
// for whichever of the undistinguishable reasons.
var ErrNotAvailable = errors.New("client: secret not available")

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type tokenRequest struct {
	Nonce   string  `json:"nonce,omitempty"`
	Counter *uint64 `json:"counter,omitempty"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type createRequest struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	AuthTag    string `json:"auth_tag"`
	TTLMinutes int    `json:"ttl_minutes,omitempty"`
}

// CreateResult is what the creator must keep: the share link opens the
// secret, the burn token deletes it early.
type CreateResult struct {
	ID        string
	BurnToken string
	ExpiresAt time.Time
	Link      string
}

type secretResponse struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	AuthTag    string `json:"auth_tag"`
}

// Challenge fetches a fresh proof-of-work challenge.
func (c *Client) Challenge(ctx context.Context) (pow.Challenge, error) {
	var ch pow.Challenge
	err := c.postJSON(ctx, "/token", tokenRequest{}, http.StatusOK, &ch)
	return ch, err
}

// Redeem submits a solved challenge and returns the signed token.
func (c *Client) Redeem(ctx context.Context, nonce string, counter uint64) (string, error) {
	var tr tokenResponse
	err := c.postJSON(ctx, "/token", tokenRequest{Nonce: nonce, Counter: &counter}, http.StatusOK, &tr)
	if err != nil {
		return "", err
	}
	return tr.Token, nil
}

// Send runs the whole creation pipeline: challenge, solve, redeem,
// encrypt locally, upload the sealed envelope. The plaintext and
// transport key never leave this process except inside Link's fragment.
func (c *Client) Send(ctx context.Context, plaintext []byte, passphrase string, ttl time.Duration) (CreateResult, error) {
	ch, err := c.Challenge(ctx)
	if err != nil {
		return CreateResult{}, err
	}

	counter, err := pow.Solve(ctx, ch)
	if err != nil {
		return CreateResult{}, err
	}

	tok, err := c.Redeem(ctx, ch.Nonce, counter)
	if err != nil {
		return CreateResult{}, err
	}

	sealed, tk, err := envelope.Encrypt(plaintext, passphrase)
	if err != nil {
		return CreateResult{}, err
	}

	req := createRequest{
		Ciphertext: base64.StdEncoding.EncodeToString(sealed.Ciphertext),
		IV:         base64.StdEncoding.EncodeToString(sealed.IV),
		AuthTag:    base64.StdEncoding.EncodeToString(sealed.AuthTag),
		TTLMinutes: int(ttl / time.Minute),
	}

	var created struct {
		ID        string    `json:"id"`
		BurnToken string    `json:"burn_token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := c.postJSONAuth(ctx, "/secrets", tok, req, http.StatusCreated, &created); err != nil {
		return CreateResult{}, err
	}

	return CreateResult{
		ID:        created.ID,
		BurnToken: created.BurnToken,
		ExpiresAt: created.ExpiresAt,
		Link:      c.baseURL + "/#" + envelope.EncodeFragment(created.ID, tk),
	}, nil
}

// Open fetches and decrypts a secret from a share link or bare
// fragment. The server only ever sees the id.
func (c *Client) Open(ctx context.Context, link, passphrase string) ([]byte, error) {
	fragment := link
	if u, err := url.Parse(link); err == nil && u.Fragment != "" {
		fragment = u.Fragment
	}

	id, tk, err := envelope.ParseFragment(fragment)
	if err != nil {
		return nil, err
	}

	sealed, err := c.Reveal(ctx, id)
	if err != nil {
		return nil, err
	}

	return envelope.Open(sealed, tk, passphrase)
}

// Reveal consumes the secret by id and returns the sealed envelope.
func (c *Client) Reveal(ctx context.Context, id string) (envelope.Sealed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/secrets/"+url.PathEscape(id), nil)
	if err != nil {
		return envelope.Sealed{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return envelope.Sealed{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return envelope.Sealed{}, ErrNotAvailable
	}
	if resp.StatusCode != http.StatusOK {
		return envelope.Sealed{}, fmt.Errorf("client: unexpected status %d", resp.StatusCode)
	}

	var sr secretResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return envelope.Sealed{}, err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(sr.Ciphertext)
	if err != nil {
		return envelope.Sealed{}, err
	}
	iv, err := base64.StdEncoding.DecodeString(sr.IV)
	if err != nil {
		return envelope.Sealed{}, err
	}
	tag, err := base64.StdEncoding.DecodeString(sr.AuthTag)
	if err != nil {
		return envelope.Sealed{}, err
	}

	return envelope.Sealed{Ciphertext: ciphertext, IV: iv, AuthTag: tag}, nil
}

// Burn requests early deletion. The server answers the same way no
// matter what, so the only failures here are transport ones.
func (c *Client) Burn(ctx context.Context, id, burnToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/secrets/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Burn-Token", burnToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("client: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, want int, out any) error {
	return c.postJSONAuth(ctx, path, "", body, want, out)
}

func (c *Client) postJSONAuth(ctx context.Context, path, bearer string, body any, want int, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return fmt.Errorf("client: unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
