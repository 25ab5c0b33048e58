package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/calderasec/keyturn/internal/tokens/domain"
	"github.com/calderasec/keyturn/internal/tokens/store"
	"github.com/calderasec/keyturn/pkg/httpx"
	"github.com/calderasec/keyturn/pkg/idx"
	"github.com/calderasec/keyturn/pkg/slogx"
)

// PrincipalsHandler serves the admin principal surface: create a principal
// and deactivate one (which strands its refresh tokens without deleting
// their audit trail).
type PrincipalsHandler struct {
	Store store.Store
}

type createPrincipalRequest struct {
	Username string `json:"username"`
}

type principalResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *PrincipalsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req createPrincipalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "username is required")
		return
	}

	now := time.Now().UTC()
	p := domain.Principal{
		ID:        idx.New().String(),
		Username:  req.Username,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Store.Principals().CreatePrincipal(ctx, p); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			httpx.WriteError(w, http.StatusConflict, "conflict", "username already taken")
			return
		}
		log.Error("principal creation failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal failure")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, principalResponse{
		ID:        p.ID,
		Username:  p.Username,
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
	})
}

// Deactivate serves POST /v1/principals/{id}/deactivate. A deactivated
// principal keeps its rows but can no longer rotate: the owner-active check
// in the refresh path rejects it.
func (h *PrincipalsHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	id := r.PathValue("id")
	if _, err := idx.Parse(id); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed principal id")
		return
	}

	if err := h.Store.Principals().SetPrincipalActive(ctx, id, false); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "no such principal")
			return
		}
		log.Error("principal deactivation failed", "err", err, "principal_id", id)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal failure")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, struct{}{})
}
