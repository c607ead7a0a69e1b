package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/timeattack/internal/adapters/repository"
	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/internal/domain/types"
)

// LeaderboardDependencies defines the interface for leaderboard reads.
type LeaderboardDependencies interface {
	ActiveEvent(ctx context.Context) (repository.ActiveEvent, error)
	Leaderboard(ctx context.Context, id model.EventID) (model.Leaderboard, bool, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /leaderboard?event=<id>. Without an
// event the active one is served.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if !allowGet(w, r) {
		return
	}

	var id model.EventID
	if raw := r.URL.Query().Get("event"); raw != "" {
		parsed, err := model.ParseEventID(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", model.NewError(op, ErrBadRequest, err))
			return
		}
		id = parsed
	} else {
		cur, err := h.deps.ActiveEvent(r.Context())
		if err != nil {
			writeFailure(w, err)
			return
		}
		id = cur.EventID
	}

	lb, ok, err := h.deps.Leaderboard(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", model.NewError(op, ErrNotFound, fmt.Errorf("no leaderboard for %s", id)))
		return
	}
	if lb == nil {
		lb = model.Leaderboard{}
	}
	writeJSON(w, http.StatusOK, types.LeaderboardView{EventID: id.String(), Entries: lb})
}
