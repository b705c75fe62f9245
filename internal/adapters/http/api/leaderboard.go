package api

import (
	"context"
	"net/http"
	"time"
)

// LeaderboardDependencies serves the ranked-profile reads.
type LeaderboardDependencies interface {
	TopN(ctx context.Context, n int) ([]Entry, error)
	Rank(ctx context.Context, fid uint64) (Entry, error)
	RankedAt(fid uint64) (time.Time, bool)
}

// LeaderboardHandler serves /leaderboard and /rank/{fid}.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a leaderboard handler capped at maxLimit rows.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetLeaderboard handles GET /leaderboard?limit=N. N is required.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if !r.URL.Query().Has("limit") {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errMissingLimit))
		return
	}
	n, err := queryInt(r, "limit", 0)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}

	entries, err := h.deps.TopN(r.Context(), n)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, entries)
}

// HandleGetRank handles GET /rank/{fid}. Last-Modified carries the time the
// row last changed; a matching If-Modified-Since gets 304.
func (h *LeaderboardHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	fid, err := pathFID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	entry, err := h.deps.Rank(r.Context(), fid)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}

	if at, ok := h.deps.RankedAt(fid); ok {
		at = at.UTC().Truncate(time.Second)
		if since, err := http.ParseTime(r.Header.Get("If-Modified-Since")); err == nil && !at.After(since) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Last-Modified", at.Format(http.TimeFormat))
	}
	writeJSON(w, http.StatusOK, entry)
}
