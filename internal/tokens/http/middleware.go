package http

import (
	"net/http"
	"strings"

	"github.com/calderasec/keyturn/pkg/cryptox"
	"github.com/calderasec/keyturn/pkg/httpx"
	"github.com/calderasec/keyturn/pkg/slogx"
)

// requireAdmin gates the admin surface behind the operator API token. The
// configured value is an Argon2id hash, so the plaintext never rests on the
// server side.
func (r *Router) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		log := slogx.FromContext(req.Context())

		token, ok := bearerToken(req)
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing bearer token")
			return
		}

		if err := cryptox.VerifySecret(token, r.adminTokenHash); err != nil {
			log.Warn("admin token rejected", "path", req.URL.Path)
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "admin token rejected")
			return
		}

		next.ServeHTTP(w, req)
	})
}

// bearerToken extracts the credential from an Authorization: Bearer header.
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(auth, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
