package http

import (
	"encoding/json"
	"net/http"

	"github.com/calderasec/keyturn/internal/tokens/service"
	"github.com/calderasec/keyturn/pkg/httpx"
	"github.com/calderasec/keyturn/pkg/slogx"
)

// SessionsHandler serves POST /v1/sessions: mint an initial access/refresh
// pair for a principal. Admin-guarded; credential verification is the
// operator's problem, not ours.
type SessionsHandler struct {
	TokenService *service.TokenService
}

type startSessionRequest struct {
	PrincipalID string `json:"principal_id"`
	ScopeID     string `json:"scope_id,omitempty"`
}

func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.PrincipalID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "principal_id is required")
		return
	}

	pair, err := h.TokenService.StartSession(ctx, req.PrincipalID, req.ScopeID)
	if err != nil {
		writeAuthError(w, log, "session start failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
	})
}
