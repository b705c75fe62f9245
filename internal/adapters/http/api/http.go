// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	service "github.com/okian/quotient/internal/app"
	"github.com/okian/quotient/internal/domain/types"
	"github.com/okian/quotient/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ProfileDependencies
	PublicStatsDependencies
	QuotientDependencies
	CheckInDependencies
	ShareDependencies
	RefreshDependencies
	LeaderboardDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	profileHandler     *ProfileHandler
	publicStatsHandler *PublicStatsHandler
	quotientHandler    *QuotientHandler
	checkInHandler     *CheckInHandler
	shareHandler       *ShareHandler
	refreshHandler     *RefreshHandler
	leaderboardHandler *LeaderboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit, maxRefreshBatch int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		profileHandler:     NewProfileHandler(deps),
		publicStatsHandler: NewPublicStatsHandler(deps),
		quotientHandler:    NewQuotientHandler(deps),
		checkInHandler:     NewCheckInHandler(deps),
		shareHandler:       NewShareHandler(deps),
		refreshHandler:     NewRefreshHandler(deps, maxRefreshBatch),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /api/public/stats/{fid}", MetricsMiddleware(s.publicStatsHandler.HandleGetPublicStats, "public_stats"))
	mux.HandleFunc("GET /api/profile/{ident}", MetricsMiddleware(s.profileHandler.HandleGetProfile, "profile"))
	mux.HandleFunc("GET /api/profile/{fid}/channels", MetricsMiddleware(s.profileHandler.HandleGetChannels, "channels"))
	mux.HandleFunc("POST /api/quotient", MetricsMiddleware(s.quotientHandler.HandlePostQuotient, "quotient"))

	mux.HandleFunc("GET /api/checkin/{key}", MetricsMiddleware(s.checkInHandler.HandleGetCheckIn, "checkin"))
	mux.HandleFunc("POST /api/checkin/{key}", MetricsMiddleware(s.checkInHandler.HandlePostCheckIn, "checkin"))
	mux.HandleFunc("DELETE /api/checkin/{key}", MetricsMiddleware(s.checkInHandler.HandleDeleteCheckIn, "checkin"))

	mux.HandleFunc("GET /api/share/{fid}", MetricsMiddleware(s.shareHandler.HandleGetShare, "share"))
	mux.HandleFunc("PUT /api/share/{fid}", MetricsMiddleware(s.shareHandler.HandlePutShare, "share"))

	mux.HandleFunc("POST /api/refresh", MetricsMiddleware(s.refreshHandler.HandlePostRefresh, "refresh"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /rank/{fid}", MetricsMiddleware(s.leaderboardHandler.HandleGetRank, "rank"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v before touching the response, so an unencodable value
// becomes a 500 instead of a truncated body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		metrics.RecordErrorByComponent("api", "encode_error")
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Code: "server_error", Message: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service kinds to status codes.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidFID),
		errors.Is(err, service.ErrInvalidIdentifier),
		errors.Is(err, service.ErrInvalidKey),
		errors.Is(err, service.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, service.ErrUpstream):
		writeError(w, http.StatusBadGateway, "upstream_error", Wrap(op, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// pathFID parses the {fid} path value.
func pathFID(r *http.Request) (uint64, error) {
	return service.ParseFID(r.PathValue("fid"))
}

// queryInt returns the named query parameter, or def when it is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
