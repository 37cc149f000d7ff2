package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/lemcache/internal/domain"
	"github.com/MrSnakeDoc/lemcache/internal/httpserver/deps"
	"github.com/MrSnakeDoc/lemcache/internal/logger"
)

type sortBody struct {
	Sort string `json:"sort"`
}

type sortResponse struct {
	Community domain.Handle   `json:"community"`
	Sort      domain.SortType `json:"sort"`
}

func GetSort(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := communityHandle(r, d)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		writeJSON(w, http.StatusOK, sortResponse{Community: h, Sort: communitySort(r.Context(), d, h)})
	}
}

// SetSort records the sort right away; the durable write happens later.
func SetSort(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := communityHandle(r, d)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "")
			return
		}

		var body sortBody
		if err := decodeBody(w, r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body: "+err.Error(), "")
			return
		}
		sort, err := domain.ParseSortType(body.Sort)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "")
			return
		}

		if d.Session.ActiveHandle() == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		d.Actions.SetCommunitySort(h, sort)
		writeJSON(w, http.StatusOK, sortResponse{Community: h, Sort: sort})
	}
}

type favoritesResponse struct {
	Favorites []domain.Handle `json:"favorites"`
}

// Favorites reads the active user's favorites from durable storage.
func Favorites(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		favs, err := d.Actions.LoadFavorites(r.Context())
		if err != nil {
			d.Logger.Warn("failed to load favorites", logger.Error(err))
			writeError(w, http.StatusServiceUnavailable, "failed to load favorites", "")
			return
		}
		writeJSON(w, http.StatusOK, favoritesResponse{Favorites: favs})
	}
}

func AddFavorite(d deps.Deps) http.HandlerFunc {
	return favoriteWrite(d, d.Actions.AddFavorite)
}

func RemoveFavorite(d deps.Deps) http.HandlerFunc {
	return favoriteWrite(d, d.Actions.RemoveFavorite)
}

func favoriteWrite(d deps.Deps, apply func(context.Context, domain.Handle) ([]domain.Handle, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := communityHandle(r, d)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		if d.Session.ActiveHandle() == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		favs, err := apply(r.Context(), h)
		if err != nil {
			d.Logger.Warn("failed to load favorites before update",
				logger.Community(h),
				logger.Error(err))
			writeError(w, http.StatusServiceUnavailable, "failed to load favorites", "")
			return
		}
		writeJSON(w, http.StatusOK, favoritesResponse{Favorites: favs})
	}
}
