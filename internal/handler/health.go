// Package handler contains HTTP handler constructors.
package handler

import (
	"context"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ai-teammate/google-signin/internal/config"
)

// Pinger is satisfied by *sql.DB and allows tests to inject a mock.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthResponse is the JSON body returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	DB      string `json:"db,omitempty"`
}

// NewHealthHandler returns an http.HandlerFunc for GET /health.
// It reports the directory backend in use and, when db is non-nil, the result
// of pinging it.
//
// When HEALTH_TOKEN is set callers must send the same value in the
// X-Health-Token header. Database error details are logged server-side only;
// the response body says "unavailable".
func NewHealthHandler(backend config.Backend, db Pinger, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := os.Getenv("HEALTH_TOKEN")
		if token != "" && r.Header.Get("X-Health-Token") != token {
			writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "forbidden"})
			return
		}

		resp := HealthResponse{Status: "ok", Backend: string(backend)}
		if db == nil {
			writeJSON(w, http.StatusOK, resp)
			return
		}

		if err := db.PingContext(r.Context()); err != nil {
			log.WithError(err).Warn("health check: db ping failed")
			resp.Status = "error"
			resp.DB = "unavailable"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp.DB = "connected"
		writeJSON(w, http.StatusOK, resp)
	}
}
