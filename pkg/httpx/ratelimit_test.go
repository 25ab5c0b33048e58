package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitByIPBlocksAfterBurst(t *testing.T) {
	t.Parallel()

	limited := Chain(okHandler(), RateLimitByIP(RateLimitConfig{
		RequestsPerWindow: 2,
		Window:            time.Minute,
		Burst:             2,
	}))

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/token", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, do("10.0.0.1:1234"))
	require.Equal(t, http.StatusOK, do("10.0.0.1:1234"))
	require.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:1234"))

	// A different client has its own bucket.
	require.Equal(t, http.StatusOK, do("10.0.0.2:1234"))
}

func TestRateLimitHonorsForwardedFor(t *testing.T) {
	t.Parallel()

	limited := Chain(okHandler(), RateLimitByIP(RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            time.Minute,
		Burst:             1,
	}))

	do := func(xff string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/token", nil)
		req.RemoteAddr = "127.0.0.1:9999"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, do("203.0.113.7, 10.0.0.1"))
	resp := do("203.0.113.7, 10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, resp)
	require.Equal(t, http.StatusOK, do("203.0.113.8"))
}
