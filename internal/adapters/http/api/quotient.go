package api

import (
	"encoding/json"
	"net/http"

	"github.com/okian/quotient/internal/domain/quotient"
	"github.com/okian/quotient/internal/domain/types"
)

// maxQuotientBody bounds POST /api/quotient payloads.
const maxQuotientBody = 1 << 16

// QuotientDependencies defines the interface for offline scoring.
type QuotientDependencies interface {
	Score(m quotient.UserMetrics) types.Assessment
}

// QuotientHandler scores caller-supplied metrics.
type QuotientHandler struct {
	deps QuotientDependencies
}

// NewQuotientHandler creates a new quotient handler.
func NewQuotientHandler(deps QuotientDependencies) *QuotientHandler {
	return &QuotientHandler{deps: deps}
}

// HandlePostQuotient handles POST /api/quotient requests.
func (h *QuotientHandler) HandlePostQuotient(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_quotient"
	var m quotient.UserMetrics
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQuotientBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Score(m))
}
