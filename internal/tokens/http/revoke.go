package http

import (
	"net/http"
	"strings"

	"github.com/calderasec/keyturn/internal/tokens/service"
	"github.com/calderasec/keyturn/pkg/httpx"
	"github.com/calderasec/keyturn/pkg/slogx"
)

// RevokeHandler serves POST /v1/revoke in the RFC 7009 shape: a form field
// named token carrying the refresh token to revoke. Revocation always
// reports success, including for unknown tokens, so the endpoint cannot be
// used to probe which tokens exist.
type RevokeHandler struct {
	TokenService *service.TokenService
}

func (h *RevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "expected form-encoded body")
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	token := r.Form.Get("token")
	if token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	if err := h.TokenService.RevokePresentedRefreshToken(ctx, token); err != nil {
		log.Error("revocation failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal failure")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, struct{}{})
}
