package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// ShareDependencies defines the interface for public share preferences.
type ShareDependencies interface {
	ShareEnabled(ctx context.Context, fid uint64) (bool, error)
	SetShareEnabled(ctx context.Context, fid uint64, enabled bool) error
}

// ShareHandler handles share preference requests.
type ShareHandler struct {
	deps ShareDependencies
}

// NewShareHandler creates a new share handler.
func NewShareHandler(deps ShareDependencies) *ShareHandler {
	return &ShareHandler{deps: deps}
}

type shareRequest struct {
	Enabled *bool `json:"enabled"`
}

type shareResponse struct {
	FID     uint64 `json:"fid"`
	Enabled bool   `json:"enabled"`
}

// HandleGetShare handles GET /api/share/{fid} requests.
func (h *ShareHandler) HandleGetShare(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_share"
	fid, err := pathFID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	enabled, err := h.deps.ShareEnabled(r.Context(), fid)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, shareResponse{FID: fid, Enabled: enabled})
}

// HandlePutShare handles PUT /api/share/{fid} requests with body {"enabled": bool}.
func (h *ShareHandler) HandlePutShare(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_share"
	fid, err := pathFID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing enabled")))
		return
	}
	if err := h.deps.SetShareEnabled(r.Context(), fid, *req.Enabled); err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, shareResponse{FID: fid, Enabled: *req.Enabled})
}
