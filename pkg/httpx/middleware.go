// Package httpx holds shared HTTP plumbing: JSON responses, middleware
// chaining and per-key rate limiting.
package httpx

import "net/http"

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares to h so that the first listed middleware is the
// outermost one.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
