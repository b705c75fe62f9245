package api

import (
	"context"
	"net/http"

	"github.com/okian/quotient/internal/domain/model"
	"github.com/okian/quotient/internal/domain/types"
)

// ProfileDependencies defines the interface for profile reads.
type ProfileDependencies interface {
	Lookup(ctx context.Context, ident string) (types.ProfileReport, error)
	Channels(ctx context.Context, fid uint64, limit int) ([]model.Channel, error)
}

// ProfileHandler handles profile and channel requests.
type ProfileHandler struct {
	deps ProfileDependencies
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(deps ProfileDependencies) *ProfileHandler {
	return &ProfileHandler{deps: deps}
}

// HandleGetProfile handles GET /api/profile/{fid-or-username} requests.
func (h *ProfileHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_profile"
	report, err := h.deps.Lookup(r.Context(), r.PathValue("ident"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type channelsResponse struct {
	FID      uint64          `json:"fid"`
	Channels []model.Channel `json:"channels"`
}

// HandleGetChannels handles GET /api/profile/{fid}/channels?limit=N requests.
func (h *ProfileHandler) HandleGetChannels(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_channels"
	fid, err := pathFID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	channels, err := h.deps.Channels(r.Context(), fid, limit)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if channels == nil {
		channels = []model.Channel{}
	}
	writeJSON(w, http.StatusOK, channelsResponse{FID: fid, Channels: channels})
}
