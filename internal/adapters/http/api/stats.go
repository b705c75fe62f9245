package api

import (
	"maps"
	"net/http"
	"time"
)

// StatsProvider exposes the service's runtime counters.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves GET /stats: the provider's counters plus the server
// clock and uptime.
type StatsHandler struct {
	statsProvider StatsProvider
	startedAt     time.Time
	now           func() time.Time
}

// NewStatsHandler creates a stats handler whose uptime counts from now.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider, startedAt: time.Now(), now: time.Now}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	out := maps.Clone(h.statsProvider.GetStats())
	if out == nil {
		out = map[string]interface{}{}
	}
	out["serverTime"] = now.UTC().Format(time.RFC3339)
	out["uptimeSeconds"] = int64(now.Sub(h.startedAt).Seconds())

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, out)
}
