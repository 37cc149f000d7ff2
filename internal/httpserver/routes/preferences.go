package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/lemcache/internal/httpserver/deps"
	"github.com/MrSnakeDoc/lemcache/internal/httpserver/handlers"
)

func init() { Register(registerPreferences) }

func registerPreferences(r chi.Router, d deps.Deps) {
	g := guarded(r, d)

	g.Get("/favorites", handlers.Favorites(d))
	g.Put("/favorites/{"+handlers.CommunityParam+"}", handlers.AddFavorite(d))
	g.Delete("/favorites/{"+handlers.CommunityParam+"}", handlers.RemoveFavorite(d))

	g.Get("/session", handlers.GetSession(d))
	g.Put("/session", handlers.SwitchSession(d))
	g.Delete("/session", handlers.Logout(d))
}
