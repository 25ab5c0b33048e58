package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/calderasec/keyturn/internal/tokens/domain"
	"github.com/calderasec/keyturn/internal/tokens/service"
	"github.com/calderasec/keyturn/pkg/httpx"
	"github.com/calderasec/keyturn/pkg/slogx"
)

// IntrospectionResponse follows the RFC 7662 shape: active=false is the only
// field revealed for tokens that do not check out.
type IntrospectionResponse struct {
	Active   bool   `json:"active"`
	Subject  string `json:"sub,omitempty"`
	Username string `json:"username,omitempty"`
}

// IntrospectHandler serves POST /v1/introspect. Resource servers present an
// access token and learn whether it is live plus who it names.
type IntrospectHandler struct {
	TokenService *service.TokenService
}

func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	principal, err := h.TokenService.ResolvePrincipalFromAccessToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			// Invalid, expired, or orphaned tokens all read as inactive.
			httpx.WriteJSON(w, http.StatusOK, IntrospectionResponse{Active: false})
			return
		}
		log.Error("introspection failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal failure")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, IntrospectionResponse{
		Active:   true,
		Subject:  principal.ID,
		Username: principal.Username,
	})
}
