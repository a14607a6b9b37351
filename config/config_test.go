package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9090
pow:
  difficulty: 12
tokens:
  ttl: 2m
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("port: %d", cfg.Server.Port)
	}
	if cfg.Pow.Difficulty != 12 {
		t.Fatalf("difficulty: %d", cfg.Pow.Difficulty)
	}
	if cfg.Tokens.TTL != 2*time.Minute {
		t.Fatalf("token ttl: %v", cfg.Tokens.TTL)
	}
	// Untouched sections keep defaults.
	if cfg.Secrets.DefaultTTL != time.Hour {
		t.Fatalf("default ttl: %v", cfg.Secrets.DefaultTTL)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("POW_DIFFICULTY", "10")
	t.Setenv("TOKEN_TTL", "90s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pow.Difficulty != 10 {
		t.Fatalf("difficulty: %d", cfg.Pow.Difficulty)
	}
	if cfg.Tokens.TTL != 90*time.Second {
		t.Fatalf("token ttl: %v", cfg.Tokens.TTL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"bad port":        func(c *Config) { c.Server.Port = 0 },
		"bad store":       func(c *Config) { c.Store.Type = "dynamo" },
		"negative ttl":    func(c *Config) { c.Secrets.DefaultTTL = -1 },
		"max < default":   func(c *Config) { c.Secrets.MaxTTL = time.Second },
		"difficulty high": func(c *Config) { c.Pow.Difficulty = 64 },
		"short key":       func(c *Config) { c.Tokens.SigningKey = "c2hvcnQ=" },
		"non-b64 key":     func(c *Config) { c.Tokens.SigningKey = "!!!" },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
