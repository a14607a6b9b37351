package main

import (
	"crypto/rand"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"sealed.fyi/config"
	"sealed.fyi/internal/api"
	"sealed.fyi/internal/store"
	"sealed.fyi/internal/token"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("config error:", err)
	}

	st := initStore(cfg)
	defer st.Close()

	issuer := token.NewIssuer(cfg.Pow.Prefix, cfg.Pow.Difficulty, cfg.Tokens.TTL, signingKey(cfg))

	router := api.SetupRouter(st, issuer, cfg)

	log.Printf("Server starting on %s", cfg.Addr())
	log.Printf("Base URL: %s", cfg.Server.BaseURL)
	log.Printf("Store: %s", cfg.Store.Type)
	log.Printf("PoW difficulty: %d", cfg.Pow.Difficulty)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Fatal(server.ListenAndServe())
}

func initStore(cfg *config.Config) store.Store {
	switch cfg.Store.Type {
	case "redis":
		st, err := store.NewRedisStore(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		if err != nil {
			log.Fatal("redis connection failed:", err)
		}
		return st
	default:
		return store.NewMemoryStore(30 * time.Second)
	}
}

func signingKey(cfg *config.Config) []byte {
	key, err := cfg.SigningKey()
	if err != nil {
		log.Fatal("signing key error:", err)
	}
	if key != nil {
		return key
	}
	// Per-process key: tokens do not survive a restart and every
	// instance mints its own. Configure signing_key when running more
	// than one replica.
	key = make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatal("signing key generation failed:", err)
	}
	log.Print("No token signing key configured, generated one for this process")
	return key
}
