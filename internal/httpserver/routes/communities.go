package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/lemcache/internal/httpserver/deps"
	"github.com/MrSnakeDoc/lemcache/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/lemcache/internal/httpserver/mw"
)

func init() { Register(registerCommunities) }

func registerCommunities(r chi.Router, d deps.Deps) {
	g := guarded(r, d)

	// routes that reach the instance share one limiter
	remote := g.With(mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.RateLimitBurst,
		RefillPerIPPerMin: d.RateLimitPerMinute,
		MaxEntries:        10000,
		TrustProxy:        d.TrustProxy,
	}))

	const community = "/communities/{" + handlers.CommunityParam + "}"

	g.Get("/communities/search", handlers.Search(d))
	g.Get("/communities/trending", handlers.Trending(d))
	g.Post("/communities/trending/refresh", handlers.RefreshTrending(d))

	remote.Get(community, handlers.Community(d))
	remote.Post(community+"/follow", handlers.Follow(d))
	remote.Post(community+"/block", handlers.Block(d))

	g.Get(community+"/sort", handlers.GetSort(d))
	g.Put(community+"/sort", handlers.SetSort(d))
}
