package httpx

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/calderasec/keyturn/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the limiting parameters for an endpoint class.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the window.
	RequestsPerWindow int
	// Window is the time window for rate limiting.
	Window time.Duration
	// Burst allows temporary bursts above the sustained rate.
	Burst int
}

// Endpoint profiles. Token endpoints get the strict profile since each
// request can mint credentials; health and introspection are more lenient.
var (
	StrictLimit = RateLimitConfig{
		RequestsPerWindow: 5,
		Window:            time.Minute,
		Burst:             5,
	}

	ModerateLimit = RateLimitConfig{
		RequestsPerWindow: 20,
		Window:            time.Minute,
		Burst:             20,
	}

	LenientLimit = RateLimitConfig{
		RequestsPerWindow: 100,
		Window:            time.Minute,
		Burst:             100,
	}
)

// clientIP extracts the caller address, honoring X-Forwarded-For and
// X-Real-IP for proxied requests.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, ok := strings.Cut(xff, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// keyedLimiter keeps one token bucket per client key.
type keyedLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int

	mu          sync.Mutex
	lastCleanup time.Time
}

func (kl *keyedLimiter) get(key string) *rate.Limiter {
	if l, ok := kl.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}
	l, _ := kl.limiters.LoadOrStore(key, rate.NewLimiter(kl.rate, kl.burst))
	kl.maybeCleanup()
	return l.(*rate.Limiter)
}

// maybeCleanup drops idle limiters so ephemeral client keys don't accumulate
// forever. A limiter with a full bucket hasn't been used recently.
func (kl *keyedLimiter) maybeCleanup() {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	if time.Since(kl.lastCleanup) < 5*time.Minute {
		return
	}
	kl.lastCleanup = time.Now()

	kl.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(kl.burst) {
			kl.limiters.Delete(key)
		}
		return true
	})
}

// RateLimitByIP limits requests per client IP using the given profile.
func RateLimitByIP(config RateLimitConfig) Middleware {
	kl := &keyedLimiter{
		rate:        rate.Limit(float64(config.RequestsPerWindow) / config.Window.Seconds()),
		burst:       config.Burst,
		lastCleanup: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			key := clientIP(r)
			if key == "" {
				log.Warn("rate limit: unable to extract client key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			limiter := kl.get(key)
			if !limiter.Allow() {
				reservation := limiter.Reserve()
				delay := reservation.Delay()
				reservation.Cancel()

				retryAfter := max(int(delay.Seconds()), 1)
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", config.RequestsPerWindow))
				w.Header().Set("X-RateLimit-Window", config.Window.String())

				log.Warn("rate limit exceeded",
					"key", key,
					"endpoint", r.URL.Path,
					"retry_after", retryAfter,
				)

				WriteError(w, http.StatusTooManyRequests,
					"rate_limit_exceeded", "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
