package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/lemcache/internal/httpserver/deps"
	"github.com/MrSnakeDoc/lemcache/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/lemcache/internal/httpserver/mw"
)

func init() { Register(registerProbes) }

// Probes skip the Host check: orchestrators call them by IP.
func registerProbes(r chi.Router, d deps.Deps) {
	probes := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
	probes.Get("/healthz", handlers.Healthz(d))
	probes.Get("/readyz", handlers.Readyz(d))
	guarded(r, d).Get("/infra", handlers.Infra(d))
}
