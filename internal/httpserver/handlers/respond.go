package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/lemcache/internal/domain"
	"github.com/MrSnakeDoc/lemcache/internal/httpserver/deps"
	"github.com/MrSnakeDoc/lemcache/internal/lemmy"
	"github.com/MrSnakeDoc/lemcache/internal/logger"
)

// CommunityParam is the chi URL parameter holding a community handle.
const CommunityParam = "community"

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// writeActionError maps a failed sync action to a response. Remote API
// errors keep Lemmy's error code.
func writeActionError(w http.ResponseWriter, r *http.Request, d deps.Deps, err error) {
	var apiErr *lemmy.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.NotFound():
		writeError(w, http.StatusNotFound, "community not found on instance", apiErr.Code)
	case errors.As(err, &apiErr):
		d.Logger.Warn("instance rejected request",
			logger.String("path", r.URL.Path),
			logger.Int("status", apiErr.Status),
			logger.String("code", apiErr.Code))
		writeError(w, http.StatusBadGateway, "instance rejected the request", apiErr.Code)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "instance did not answer in time", "")
	default:
		d.Logger.Warn("instance request failed",
			logger.String("path", r.URL.Path),
			logger.Error(err))
		writeError(w, http.StatusBadGateway, "instance unreachable", "")
	}
}

// communityHandle reads the {community} URL parameter. A bare name is
// qualified with the active account's instance.
func communityHandle(r *http.Request, d deps.Deps) (domain.Handle, error) {
	return domain.ParseHandle(chi.URLParam(r, CommunityParam), d.Session.Instance())
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
