package api

import (
	"context"
	"net/http"

	"github.com/okian/quotient/internal/domain/checkin"
)

// CheckInDependencies defines the interface for the advisory check-in ledger.
type CheckInDependencies interface {
	CheckInStatus(ctx context.Context, key string) (checkin.Status, error)
	RecordCheckIn(ctx context.Context, key string) (checkin.Status, bool, error)
	ClearCheckIn(ctx context.Context, key string) error
}

// CheckInHandler handles check-in requests.
type CheckInHandler struct {
	deps CheckInDependencies
}

// NewCheckInHandler creates a new check-in handler.
func NewCheckInHandler(deps CheckInDependencies) *CheckInHandler {
	return &CheckInHandler{deps: deps}
}

// HandleGetCheckIn handles GET /api/checkin/{key} requests.
func (h *CheckInHandler) HandleGetCheckIn(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_checkin"
	status, err := h.deps.CheckInStatus(r.Context(), r.PathValue("key"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HandlePostCheckIn handles POST /api/checkin/{key} requests. A second
// check-in on the same UTC day is answered with 409 and the current status.
func (h *CheckInHandler) HandlePostCheckIn(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_checkin"
	status, already, err := h.deps.RecordCheckIn(r.Context(), r.PathValue("key"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if already {
		writeJSON(w, http.StatusConflict, status)
		return
	}
	writeJSON(w, http.StatusCreated, status)
}

// HandleDeleteCheckIn handles DELETE /api/checkin/{key} requests.
func (h *CheckInHandler) HandleDeleteCheckIn(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_checkin"
	if err := h.deps.ClearCheckIn(r.Context(), r.PathValue("key")); err != nil {
		writeServiceError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
