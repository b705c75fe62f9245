package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/quotient/internal/app"
)

// RefreshDependencies defines the interface for background refreshes.
type RefreshDependencies interface {
	// EnqueueRefresh returns how many fids were accepted. It returns
	// service.ErrBackpressure when the queue is full.
	EnqueueRefresh(ctx context.Context, fids []uint64) (int, error)
}

// RefreshHandler handles refresh requests.
type RefreshHandler struct {
	deps     RefreshDependencies
	maxBatch int
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(deps RefreshDependencies, maxBatch int) *RefreshHandler {
	return &RefreshHandler{deps: deps, maxBatch: maxBatch}
}

type refreshRequest struct {
	FIDs []uint64 `json:"fids"`
}

func (req refreshRequest) validate(maxBatch int) error {
	switch {
	case len(req.FIDs) == 0:
		return errors.New("missing fids")
	case len(req.FIDs) > maxBatch:
		return fmt.Errorf("at most %d fids per request", maxBatch)
	}
	for _, fid := range req.FIDs {
		if fid == 0 {
			return errors.New("fid must be positive")
		}
	}
	return nil
}

type refreshResponse struct {
	Status   string `json:"status"`
	Accepted int    `json:"accepted"`
}

// HandlePostRefresh handles POST /api/refresh requests.
func (h *RefreshHandler) HandlePostRefresh(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_refresh"
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(h.maxBatch); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	n, err := h.deps.EnqueueRefresh(r.Context(), req.FIDs)
	if errors.Is(err, service.ErrBackpressure) {
		writeJSON(w, http.StatusTooManyRequests, refreshResponse{Status: "backpressure", Accepted: n})
		return
	}
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, refreshResponse{Status: "accepted", Accepted: n})
}
