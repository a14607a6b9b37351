package client

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"sealed.fyi/config"
	"sealed.fyi/internal/api"
	"sealed.fyi/internal/envelope"
	"sealed.fyi/internal/store"
	"sealed.fyi/internal/token"
)

func testClient(t *testing.T) *Client {
	t.Helper()

	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	cfg.Pow.Difficulty = 8

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	iss := token.NewIssuer(cfg.Pow.Prefix, cfg.Pow.Difficulty, cfg.Tokens.TTL, key)

	st := store.NewMemoryStore(time.Minute)
	t.Cleanup(func() { st.Close() })

	srv := httptest.NewServer(api.SetupRouter(st, iss, cfg))
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

func TestSendAndOpen(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	result, err := c.Send(ctx, []byte("hello world"), "", 10*time.Minute)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if result.Link == "" || result.BurnToken == "" {
		t.Fatalf("incomplete result: %+v", result)
	}

	plaintext, err := c.Open(ctx, result.Link, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(plaintext) != "hello world" {
		t.Fatalf("got %q", plaintext)
	}

	// Single view: the link is now dead.
	if _, err := c.Open(ctx, result.Link, ""); !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("second open: want ErrNotAvailable, got %v", err)
	}
}

func TestSendAndOpenWithPassphrase(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	result, err := c.Send(ctx, []byte("pass-protected"), "hunter2", 10*time.Minute)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	plaintext, err := c.Open(ctx, result.Link, "hunter2")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if string(plaintext) != "pass-protected" {
		t.Fatalf("got %q", plaintext)
	}
}

func TestOpenWrongPassphraseConsumesButFailsClosed(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	result, err := c.Send(ctx, []byte("secret"), "right", 10*time.Minute)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := c.Open(ctx, result.Link, "wrong"); !errors.Is(err, envelope.ErrAuthentication) {
		t.Fatalf("want ErrAuthentication, got %v", err)
	}
}

func TestBurnKillsLink(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()

	result, err := c.Send(ctx, []byte("to burn"), "", 10*time.Minute)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := c.Burn(ctx, result.ID, result.BurnToken); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if _, err := c.Open(ctx, result.Link, ""); !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("want ErrNotAvailable after burn, got %v", err)
	}

	// Burning again, or with garbage, still succeeds from our side.
	if err := c.Burn(ctx, result.ID, "garbage"); err != nil {
		t.Fatalf("repeat burn: %v", err)
	}
}
