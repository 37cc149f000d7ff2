package handlers

import (
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/lemcache/internal/actions"
	"github.com/MrSnakeDoc/lemcache/internal/domain"
	"github.com/MrSnakeDoc/lemcache/internal/httpserver/deps"
	"github.com/MrSnakeDoc/lemcache/internal/logger"
	"github.com/MrSnakeDoc/lemcache/internal/session"
)

type sessionResponse struct {
	Active             *session.State  `json:"active"`
	Accounts           []domain.Handle `json:"accounts"`
	SiteVersion        string          `json:"site_version,omitempty"`
	BlockedCommunities []domain.Handle `json:"blocked_communities,omitempty"`
}

type switchRequest struct {
	Handle string `json:"handle"`
}

func sessionSnapshot(d deps.Deps) sessionResponse {
	resp := sessionResponse{Accounts: d.Session.Accounts()}
	if st, ok := d.Session.State(); ok {
		resp.Active = &st
	}
	if site := d.Session.Site(); site != nil {
		resp.SiteVersion = site.Version
		resp.BlockedCommunities = site.BlockedCommunities()
	}
	return resp
}

func GetSession(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, sessionSnapshot(d))
	}
}

// SwitchSession activates another account from the accounts file.
func SwitchSession(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body switchRequest
		if err := decodeBody(w, r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body: "+err.Error(), "")
			return
		}
		h, err := domain.ParseHandle(body.Handle, "")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "")
			return
		}

		err = d.Actions.SwitchAccount(r.Context(), h)
		switch {
		case errors.Is(err, session.ErrUnknownAccount):
			writeError(w, http.StatusNotFound, err.Error(), "")
			return
		case errors.Is(err, actions.ErrPreferences):
			d.Logger.Warn("failed to load favorites after switch",
				logger.Account(h),
				logger.Error(err))
			writeError(w, http.StatusServiceUnavailable, "failed to load favorites", "")
			return
		case err != nil && d.Session.ActiveHandle() == h:
			// switched, but the site could not be loaded
			writeActionError(w, r, d, err)
			return
		case err != nil:
			writeError(w, http.StatusBadGateway, err.Error(), "")
			return
		}
		writeJSON(w, http.StatusOK, sessionSnapshot(d))
	}
}

func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Actions.Logout()
		w.WriteHeader(http.StatusNoContent)
	}
}
