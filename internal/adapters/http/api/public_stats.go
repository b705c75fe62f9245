package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/okian/quotient/internal/app"
	"github.com/okian/quotient/internal/domain/types"
)

// publicCacheControl lets browsers keep the card for an hour and shared
// caches for a day.
const publicCacheControl = "public, max-age=3600, s-maxage=86400"

// PublicStatsDependencies defines the interface for the public summary.
type PublicStatsDependencies interface {
	PublicStats(ctx context.Context, fid uint64) (types.PublicStats, error)
}

// PublicStatsHandler handles public stats requests.
type PublicStatsHandler struct {
	deps PublicStatsDependencies
}

// NewPublicStatsHandler creates a new public stats handler.
func NewPublicStatsHandler(deps PublicStatsDependencies) *PublicStatsHandler {
	return &PublicStatsHandler{deps: deps}
}

// HandleGetPublicStats handles GET /api/public/stats/{fid} requests.
func (h *PublicStatsHandler) HandleGetPublicStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_public_stats"
	fid, err := pathFID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	stats, err := h.deps.PublicStats(r.Context(), fid)
	switch {
	case errors.Is(err, service.ErrShareDisabled):
		writeJSON(w, http.StatusOK, types.ShareDisabled{
			FID:                fid,
			PublicShareEnabled: false,
			Message:            types.ShareDisabledMessage,
		})
		return
	case err != nil:
		writeServiceError(w, op, err)
		return
	}
	w.Header().Set("Cache-Control", publicCacheControl)
	writeJSON(w, http.StatusOK, stats)
}
