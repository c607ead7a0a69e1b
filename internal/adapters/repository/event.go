package repository

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/pkg/logger"
	"github.com/okian/timeattack/pkg/metrics"
)

// ActiveEvent is the persisted pointer to the event currently running.
type ActiveEvent struct {
	EventID     model.EventID `json:"event_id"`
	LastUpdated time.Time     `json:"last_updated"`
	Override    bool          `json:"override,omitempty"`
}

// ActiveEventStore persists the ActiveEvent pointer.
type ActiveEventStore struct {
	path string
	mu   sync.Mutex
	opts storeOptions
}

// NewActiveEventStore creates a store backed by path.
func NewActiveEventStore(path string, opts ...Option) *ActiveEventStore {
	return &ActiveEventStore{path: path, opts: applyOptions("event-store", opts)}
}

// Path returns the artifact location.
func (s *ActiveEventStore) Path() string { return s.path }

// Load returns the stored pointer. ok is false when nothing valid is stored.
func (s *ActiveEventStore) Load(ctx context.Context) (ActiveEvent, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *ActiveEventStore) load(ctx context.Context) (ActiveEvent, bool, error) {
	data, err := readFile(s.path)
	if err != nil {
		return ActiveEvent{}, false, model.NewError("event_store.load", model.ErrData, err)
	}
	if len(data) == 0 {
		return ActiveEvent{}, false, nil
	}
	var ev ActiveEvent
	if err := json.Unmarshal(data, &ev); err != nil || ev.EventID.IsZero() {
		s.opts.logger.Warn(ctx, "active event artifact unreadable, ignoring",
			logger.String("path", s.path),
			logger.Error(model.NewError("event_store.load", model.ErrData, err)))
		return ActiveEvent{}, false, nil
	}
	return ev, true, nil
}

// Set records id as the active event. It is a no-op when the same id is
// already stored with the same override flag.
func (s *ActiveEventStore) Set(ctx context.Context, id model.EventID, override bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok, err := s.load(ctx); err == nil && ok && cur.EventID == id && cur.Override == override {
		metrics.RecordArtifactSave("event", "unchanged")
		return false, nil
	}
	data, err := json.MarshalIndent(ActiveEvent{
		EventID:     id,
		LastUpdated: s.opts.now(),
		Override:    override,
	}, "", "  ")
	if err != nil {
		return false, model.NewError("event_store.set", model.ErrData, err)
	}
	if err := WriteFileAtomic(s.path, data, 0o644); err != nil {
		metrics.RecordArtifactSave("event", "failed")
		return false, model.NewError("event_store.set", model.ErrData, err)
	}
	metrics.RecordArtifactSave("event", "written")
	return true, nil
}
