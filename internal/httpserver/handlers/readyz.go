package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/lemcache/internal/httpserver/deps"
	"github.com/MrSnakeDoc/lemcache/internal/logger"
)

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// Readyz is ready once the settings backend answers. A missing session is
// fine: lemcache then serves from its cache only.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := d.Settings.Ping(ctx); err != nil {
			d.Logger.Warn("readiness check failed",
				logger.String("backend", d.Settings.Backend()),
				logger.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Ready: false, Error: "settings backend unreachable"})
			return
		}
		writeJSON(w, http.StatusOK, readyzResponse{Ready: true})
	}
}
