// Package api serves the read-only operational HTTP endpoints.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/okian/timeattack/internal/adapters/repository"
	"github.com/okian/timeattack/internal/domain/model"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	StatsProvider
	ActiveEvent(ctx context.Context) (repository.ActiveEvent, error)
	Leaderboard(ctx context.Context, id model.EventID) (model.Leaderboard, bool, error)
	Standings(ctx context.Context, season string) (string, []model.StandingsEntry, bool, error)
}

// Server wires HTTP routes for the ops API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eventHandler       *EventHandler
	leaderboardHandler *LeaderboardHandler
	standingsHandler   *StandingsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		eventHandler:       NewEventHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		standingsHandler:   NewStandingsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/event", MetricsMiddleware(s.eventHandler.HandleGetEvent, "event"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/standings", MetricsMiddleware(s.standingsHandler.HandleGetStandings, "standings"))
}

// Handler returns a mux with every route registered.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	s.Register(ctx, mux)
	return mux
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps a pipeline error onto a status: configuration and
// lookup problems are the caller's, anything else is ours.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, model.ErrConfig):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, model.ErrData):
		writeError(w, http.StatusNotFound, "not_found", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethod)
		return false
	}
	return true
}
