package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"sealed.fyi/config"
	"sealed.fyi/internal/models"
	"sealed.fyi/internal/store"
	"sealed.fyi/internal/token"
)

type Handler struct {
	store  store.Store
	issuer *token.Issuer
	config *config.Config
}

func NewHandler(s store.Store, iss *token.Issuer, cfg *config.Config) *Handler {
	return &Handler{
		store:  s,
		issuer: iss,
		config: cfg,
	}
}

// TokenRequest doubles as challenge fetch and redeem: a body without a
// counter asks for a fresh challenge, one with nonce+counter redeems it.
type TokenRequest struct {
	Nonce   string  `json:"nonce,omitempty"`
	Counter *uint64 `json:"counter,omitempty"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type CreateRequest struct {
	Ciphertext string `json:"ciphertext"` // base64
	IV         string `json:"iv"`         // base64, 12 bytes
	AuthTag    string `json:"auth_tag"`   // base64, 16 bytes
	TTLMinutes int    `json:"ttl_minutes,omitempty"`
}

type CreateResponse struct {
	ID        string    `json:"id"`
	BurnToken string    `json:"burn_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SecretResponse struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	AuthTag    string `json:"auth_tag"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Token serves both halves of the two-step issuance flow.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if req.Counter == nil {
		h.json(w, http.StatusOK, h.issuer.Challenge())
		return
	}

	signed, exp, err := h.issuer.Redeem(req.Nonce, *req.Counter)
	if err != nil {
		// One rejection for every failure mode; nothing to calibrate.
		h.error(w, http.StatusUnauthorized, "invalid")
		return
	}

	h.json(w, http.StatusOK, TokenResponse{Token: signed, ExpiresAt: exp})
}

func (h *Handler) CreateSecret(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ciphertext, err := base64.StdEncoding.DecodeString(req.Ciphertext)
	if err != nil || len(ciphertext) == 0 {
		h.error(w, http.StatusBadRequest, "ciphertext is required")
		return
	}
	if len(ciphertext) > h.config.Secrets.MaxPayloadBytes {
		h.error(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	iv, err := base64.StdEncoding.DecodeString(req.IV)
	if err != nil || len(iv) != 12 {
		h.error(w, http.StatusBadRequest, "iv must be 12 bytes")
		return
	}

	authTag, err := base64.StdEncoding.DecodeString(req.AuthTag)
	if err != nil || len(authTag) != 16 {
		h.error(w, http.StatusBadRequest, "auth_tag must be 16 bytes")
		return
	}

	ttl := clampDuration(
		time.Duration(req.TTLMinutes)*time.Minute,
		h.config.Secrets.DefaultTTL,
		h.config.Secrets.MaxTTL,
	)

	secret := &models.Secret{
		ID:         store.GenerateID(),
		Ciphertext: ciphertext,
		IV:         iv,
		AuthTag:    authTag,
		BurnToken:  uuid.NewString(),
		ExpiresAt:  time.Now().Add(ttl),
		CreatedAt:  time.Now(),
	}

	if err := h.store.Create(r.Context(), secret); err != nil {
		h.error(w, http.StatusInternalServerError, "failed to save secret")
		return
	}

	h.json(w, http.StatusCreated, CreateResponse{
		ID:        secret.ID,
		BurnToken: secret.BurnToken,
		ExpiresAt: secret.ExpiresAt,
	})
}

// RevealSecret is the single-view consume-on-read. Every absence cause
// (never existed, expired, already consumed) produces the same 404.
func (h *Handler) RevealSecret(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	secret, err := h.store.Consume(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotAvailable) {
			h.error(w, http.StatusNotFound, "not available")
		} else {
			h.error(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.json(w, http.StatusOK, SecretResponse{
		Ciphertext: base64.StdEncoding.EncodeToString(secret.Ciphertext),
		IV:         base64.StdEncoding.EncodeToString(secret.IV),
		AuthTag:    base64.StdEncoding.EncodeToString(secret.AuthTag),
	})
}

// BurnSecret always answers 204 with an empty body. Existing secret with
// the right token, wrong token, missing token, unknown or malformed id:
// the caller sees the same thing in every case. The store call runs
// unconditionally so the handler's work is uniform too.
func (h *Handler) BurnSecret(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	burnToken := r.Header.Get("X-Burn-Token")

	_ = h.store.Burn(r.Context(), id, burnToken)

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) json(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) error(w http.ResponseWriter, status int, message string) {
	h.json(w, status, ErrorResponse{Error: message})
}

func clampDuration(val, defaultVal, maxVal time.Duration) time.Duration {
	if val <= 0 {
		return defaultVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}
