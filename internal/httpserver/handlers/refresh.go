package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/lemcache/internal/httpserver/deps"
	"github.com/MrSnakeDoc/lemcache/internal/logger"
)

// RefreshTrending triggers a manual refresh of the trending communities.
func RefreshTrending(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.TrendingTrigger <- struct{}{}:
			d.Logger.Info("manual trending refresh triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusAccepted)
			if _, err := w.Write([]byte("✅ Trending refresh triggered\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		default:
			d.Logger.Warn("trending refresh already pending",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusTooManyRequests)
			if _, err := w.Write([]byte("⏳ Trending refresh already pending, please wait\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
		}
	}
}
