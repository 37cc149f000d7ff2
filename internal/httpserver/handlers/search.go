package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/lemcache/internal/domain"
	"github.com/MrSnakeDoc/lemcache/internal/httpserver/deps"
	"github.com/MrSnakeDoc/lemcache/internal/logger"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

type searchResponse struct {
	Query   string             `json:"query"`
	Matches []domain.Candidate `json:"matches"`
}

// Search ranks the communities known locally (cached, trending and
// favorites) against ?q=. It never reaches the instance.
func Search(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.URL.Query().Get("q"))
		if raw == "" {
			writeError(w, http.StatusBadRequest, "missing q", "")
			return
		}

		limit := defaultSearchLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "invalid limit", "")
				return
			}
			limit = min(n, maxSearchLimit)
		}

		known := d.Cache.Handles()
		for _, v := range d.Cache.Trending() {
			if h, err := v.Handle(); err == nil {
				known = append(known, h)
			}
		}

		candidates := domain.RankCandidates(domain.ParseQuery(raw), known, d.Actions.Favorites())
		if len(candidates) > limit {
			candidates = candidates[:limit]
		}
		if candidates == nil {
			candidates = []domain.Candidate{}
		}

		if len(candidates) > 0 {
			d.Logger.Debug("search resolved",
				logger.String("query", raw),
				logger.String("best", candidates[0].Handle.String()),
				logger.String("score", fmt.Sprintf("%.2f", candidates[0].TotalScore)))
		}

		writeJSON(w, http.StatusOK, searchResponse{Query: raw, Matches: candidates})
	}
}
