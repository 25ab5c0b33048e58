// Package http exposes the token lifecycle over a small JSON/form API:
// token rotation, revocation, introspection, an admin surface for principals
// and initial sessions, and health probes.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/calderasec/keyturn/internal/tokens/service"
	"github.com/calderasec/keyturn/internal/tokens/store"
	"github.com/calderasec/keyturn/pkg/httpx"
	"github.com/calderasec/keyturn/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	// adminTokenHash is the Argon2id hash of the operator API token guarding
	// the admin surface. Empty disables those routes entirely.
	adminTokenHash string

	store        store.Store
	TokenService *service.TokenService
}

func NewRouter(
	buildVersion string,
	adminTokenHash string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:            http.NewServeMux(),
		buildVersion:   buildVersion,
		startTime:      time.Now(),
		logger:         logger,
		adminTokenHash: adminTokenHash,
		store:          st,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerTokens()
	r.registerAdmin()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerTokens() {
	// POST /v1/token - strict limit: every request can mint credentials.
	tokenHandler := &TokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /v1/revoke - moderate limit; idempotent by design.
	revokeHandler := &RevokeHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/revoke",
		httpx.Chain(revokeHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /v1/introspect - resource servers call this per request.
	introspectHandler := &IntrospectHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/introspect",
		httpx.Chain(introspectHandler,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	if r.adminTokenHash == "" {
		r.logger.Warn("admin token not configured; admin routes disabled")
		return
	}

	sessions := &SessionsHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/sessions",
		httpx.Chain(sessions,
			r.requireAdmin,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	principals := &PrincipalsHandler{Store: r.store}
	r.Mux.Handle("POST /v1/principals",
		httpx.Chain(principals,
			r.requireAdmin,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/principals/{id}/deactivate",
		httpx.Chain(http.HandlerFunc(principals.Deactivate),
			r.requireAdmin,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
