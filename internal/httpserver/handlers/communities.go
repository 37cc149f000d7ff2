package handlers

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/MrSnakeDoc/lemcache/internal/domain"
	"github.com/MrSnakeDoc/lemcache/internal/httpserver/deps"
	"github.com/MrSnakeDoc/lemcache/internal/logger"
)

type communityResponse struct {
	Handle     domain.Handle                   `json:"handle"`
	Community  domain.CommunityView            `json:"community_view"`
	Moderators []domain.CommunityModeratorView `json:"moderators"`
	Sort       domain.SortType                 `json:"sort"`
	Favorite   bool                            `json:"favorite"`
	Cached     bool                            `json:"cached"` // true when served without reaching the instance
}

// Community fetches a community through the sync action and serves the
// cached snapshot. ?cached=true skips the fetch.
func Community(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := communityHandle(r, d)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "")
			return
		}

		cachedOnly, _ := strconv.ParseBool(r.URL.Query().Get("cached"))
		fetched := false
		if !cachedOnly {
			resp, err := d.Actions.GetCommunity(r.Context(), h)
			if err != nil {
				writeActionError(w, r, d, err)
				return
			}
			fetched = resp != nil
		}

		view, ok := d.Cache.Get(h)
		if !ok {
			writeError(w, http.StatusNotFound, "community not cached", "")
			return
		}
		mods, _ := d.Cache.Moderators(h)
		if mods == nil {
			mods = []domain.CommunityModeratorView{}
		}

		writeJSON(w, http.StatusOK, communityResponse{
			Handle:     h,
			Community:  view,
			Moderators: mods,
			Sort:       communitySort(r.Context(), d, h),
			Favorite:   slices.Contains(d.Actions.Favorites(), h),
			Cached:     !fetched,
		})
	}
}

type followRequest struct {
	Follow bool `json:"follow"`
}

// Follow follows or unfollows a community.
func Follow(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body followRequest
		if err := decodeBody(w, r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body: "+err.Error(), "")
			return
		}

		id, ok := resolveCommunityID(w, r, d)
		if !ok {
			return
		}

		view, err := d.Actions.FollowCommunity(r.Context(), body.Follow, id)
		if err != nil {
			writeActionError(w, r, d, err)
			return
		}
		if view == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

type blockRequest struct {
	Block bool `json:"block"`
}

// Block blocks or unblocks a community; the site state is refreshed after.
func Block(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body blockRequest
		if err := decodeBody(w, r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body: "+err.Error(), "")
			return
		}

		id, ok := resolveCommunityID(w, r, d)
		if !ok {
			return
		}

		view, err := d.Actions.BlockCommunity(r.Context(), body.Block, id)
		if err != nil {
			writeActionError(w, r, d, err)
			return
		}
		if view == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

type trendingResponse struct {
	Communities []domain.CommunityView `json:"communities"`
	UpdatedAt   *time.Time             `json:"updated_at,omitempty"`
}

// Trending serves the cached trending list.
func Trending(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := trendingResponse{Communities: d.Cache.Trending()}
		if resp.Communities == nil {
			resp.Communities = []domain.CommunityView{}
		}
		if at := d.Cache.LastTrendingUpdate(); !at.IsZero() {
			resp.UpdatedAt = &at
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// resolveCommunityID finds the numeric id the follow and block calls need,
// fetching the community when it is not cached yet.
func resolveCommunityID(w http.ResponseWriter, r *http.Request, d deps.Deps) (int64, bool) {
	h, err := communityHandle(r, d)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return 0, false
	}

	if view, ok := d.Cache.Get(h); ok {
		return view.Community.ID, true
	}

	resp, err := d.Actions.GetCommunity(r.Context(), h)
	if err != nil {
		writeActionError(w, r, d, err)
		return 0, false
	}
	if resp == nil {
		// no session: nothing to act on
		w.WriteHeader(http.StatusNoContent)
		return 0, false
	}
	return resp.CommunityView.Community.ID, true
}

func communitySort(ctx context.Context, d deps.Deps, h domain.Handle) domain.SortType {
	sort, err := d.Actions.CommunitySort(ctx, h)
	if err != nil {
		d.Logger.Warn("failed to read community sort",
			logger.Community(h),
			logger.Error(err))
	}
	return sort
}
