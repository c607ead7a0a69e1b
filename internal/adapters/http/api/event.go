package api

import (
	"context"
	"net/http"

	"github.com/okian/timeattack/internal/adapters/repository"
)

// EventDependencies reads the active event pointer.
type EventDependencies interface {
	ActiveEvent(ctx context.Context) (repository.ActiveEvent, error)
}

// EventHandler handles active event requests.
type EventHandler struct {
	deps EventDependencies
}

// NewEventHandler creates a new event handler.
func NewEventHandler(deps EventDependencies) *EventHandler {
	return &EventHandler{deps: deps}
}

// HandleGetEvent handles GET /event requests.
func (h *EventHandler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	cur, err := h.deps.ActiveEvent(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cur)
}
