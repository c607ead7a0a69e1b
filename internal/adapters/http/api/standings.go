package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/internal/domain/types"
)

// StandingsDependencies defines the interface for standings reads.
type StandingsDependencies interface {
	Standings(ctx context.Context, season string) (string, []model.StandingsEntry, bool, error)
}

// StandingsHandler handles standings requests.
type StandingsHandler struct {
	deps StandingsDependencies
}

// NewStandingsHandler creates a new standings handler.
func NewStandingsHandler(deps StandingsDependencies) *StandingsHandler {
	return &StandingsHandler{deps: deps}
}

// HandleGetStandings handles GET /standings?season=<id>. Without a season
// the schedule's season is served.
func (h *StandingsHandler) HandleGetStandings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_standings"
	if !allowGet(w, r) {
		return
	}
	season, table, ok, err := h.deps.Standings(r.Context(), r.URL.Query().Get("season"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", model.NewError(op, ErrNotFound, fmt.Errorf("no standings for %s", season)))
		return
	}
	if table == nil {
		table = []model.StandingsEntry{}
	}
	writeJSON(w, http.StatusOK, types.StandingsView{Season: season, Entries: table})
}
