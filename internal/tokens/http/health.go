package http

import (
	"net/http"
	"time"

	"github.com/calderasec/keyturn/internal/tokens/store"
	"github.com/calderasec/keyturn/pkg/httpx"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// LivezHandler reports process liveness. It never touches dependencies: if
// the handler runs, the process is alive.
func LivezHandler(startTime time.Time, version string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, healthResponse{
			Status:  "ok",
			Version: version,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
		})
	})
}

// ReadyzHandler reports readiness to serve traffic, which means the database
// must answer a ping.
func ReadyzHandler(startTime time.Time, version string, st store.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{
				Status:  "degraded",
				Version: version,
				Uptime:  time.Since(startTime).Round(time.Second).String(),
			})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, healthResponse{
			Status:  "ok",
			Version: version,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
		})
	})
}
