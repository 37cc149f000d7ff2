package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/lemcache/internal/httpserver/deps"
)

type componentStatus struct {
	OK         bool   `json:"ok"`
	Entries    *int   `json:"entries,omitempty"`
	LastUpdate string `json:"last_update,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Impact     string `json:"impact,omitempty"`
	Error      string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		communities := d.Cache.Count()
		trending := len(d.Cache.Trending())

		components := map[string]componentStatus{
			"cache": {
				OK:         true,
				Entries:    &communities,
				LastUpdate: formatTime(d.Cache.LastReset(), "never reset"),
			},
			"trending": {
				OK:         trending > 0,
				Entries:    &trending,
				LastUpdate: formatTime(d.Cache.LastTrendingUpdate(), "never"),
			},
			"settings": checkSettings(r.Context(), d),
			"session":  checkSession(d),
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	// Preferences cannot be persisted: every write is lost on restart.
	if s, ok := components["settings"]; ok && !s.OK {
		return "degraded"
	}
	// No account: nothing reaches the instance, the cache only serves what it has.
	if s, ok := components["session"]; ok && !s.OK {
		return "offline"
	}
	return "online"
}

func checkSettings(parent context.Context, d deps.Deps) componentStatus {
	ctx, cancel := context.WithTimeout(parent, 2*time.Second)
	defer cancel()

	if err := d.Settings.Ping(ctx); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   d.Settings.Backend(),
			Impact: "preferences-not-persisted",
			Error:  err.Error(),
		}
	}
	return componentStatus{OK: true, Mode: d.Settings.Backend()}
}

func checkSession(d deps.Deps) componentStatus {
	st, ok := d.Session.State()
	if !ok {
		return componentStatus{
			OK:     false,
			Mode:   "anonymous",
			Impact: "sync-actions-disabled",
		}
	}
	return componentStatus{
		OK:         true,
		Mode:       st.Handle.String(),
		LastUpdate: formatTime(st.Since, ""),
	}
}

func formatTime(t time.Time, zero string) string {
	if t.IsZero() {
		return zero
	}
	return t.Format("2006-01-02 15:04:05")
}
