package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/calderasec/keyturn/internal/tokens/domain"
	"github.com/calderasec/keyturn/internal/tokens/service"
	"github.com/calderasec/keyturn/pkg/httpx"
	"github.com/calderasec/keyturn/pkg/slogx"
)

// TokenResponse is the body returned by token-minting endpoints.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"` // access token lifetime, seconds
}

// TokenHandler serves POST /v1/token. Accepts
// application/x-www-form-urlencoded with grant_type=refresh_token, mirroring
// the RFC 6749 token endpoint shape.
type TokenHandler struct {
	TokenService *service.TokenService
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	if grantType := r.Form.Get("grant_type"); grantType != "refresh_token" {
		httpx.WriteError(w, http.StatusBadRequest, "unsupported_grant_type", "only refresh_token is supported")
		return
	}

	refresh := r.Form.Get("refresh_token")
	if refresh == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	pair, err := h.TokenService.RotateOnRefresh(ctx, refresh)
	if err != nil {
		writeAuthError(w, log, "refresh grant failed", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
	})
}

// writeAuthError maps service errors onto responses: Unauthorized becomes a
// 401 invalid_grant with its (deliberately coarse) reason, anything else a
// logged 500.
func writeAuthError(w http.ResponseWriter, log *slog.Logger, msg string, err error) {
	var uerr *domain.UnauthorizedError
	if errors.As(err, &uerr) {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_grant", uerr.Reason)
		return
	}
	log.Error(msg, "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal failure")
}
