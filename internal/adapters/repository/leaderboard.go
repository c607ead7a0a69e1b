package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"

	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/pkg/logger"
	"github.com/okian/timeattack/pkg/metrics"
)

// LeaderboardStore keeps every event's leaderboard in one JSON object keyed
// by full event id. Saves rewrite the whole file atomically and leave
// other events untouched.
type LeaderboardStore struct {
	path string
	mu   sync.Mutex
	opts storeOptions
}

// NewLeaderboardStore creates a store backed by path.
func NewLeaderboardStore(path string, opts ...Option) *LeaderboardStore {
	return &LeaderboardStore{path: path, opts: applyOptions("leaderboard-store", opts)}
}

// Path returns the artifact location.
func (s *LeaderboardStore) Path() string { return s.path }

// Load returns every stored leaderboard. A missing file is empty. A
// malformed file is logged as a data error and also treated as empty so
// the next save rewrites it.
func (s *LeaderboardStore) Load(ctx context.Context) (map[string]model.Leaderboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *LeaderboardStore) load(ctx context.Context) (map[string]model.Leaderboard, error) {
	data, err := readFile(s.path)
	if err != nil {
		return nil, model.NewError("leaderboard_store.load", model.ErrData, err)
	}
	all := make(map[string]model.Leaderboard)
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		s.opts.logger.Warn(ctx, "leaderboard artifact malformed, starting fresh",
			logger.String("path", s.path),
			logger.Error(model.NewError("leaderboard_store.load", model.ErrData, fmt.Errorf("%w: %w", ErrMalformed, err))))
		return make(map[string]model.Leaderboard), nil
	}
	return all, nil
}

// Get returns the stored leaderboard of id. ok is false when none is stored.
func (s *LeaderboardStore) Get(ctx context.Context, id model.EventID) (model.Leaderboard, bool, error) {
	all, err := s.Load(ctx)
	if err != nil {
		return nil, false, err
	}
	lb, ok := all[id.String()]
	return lb, ok, nil
}

// Save stores lb under id. A structurally equal leaderboard is not
// written and changed is false.
func (s *LeaderboardStore) Save(ctx context.Context, id model.EventID, lb model.Leaderboard) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		metrics.RecordArtifactSave("leaderboard", "failed")
		return false, err
	}
	if lb == nil {
		lb = model.Leaderboard{}
	}
	if cur, ok := all[id.String()]; ok && cur.Equal(lb) {
		metrics.RecordArtifactSave("leaderboard", "unchanged")
		return false, nil
	}
	all[id.String()] = lb

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		metrics.RecordArtifactSave("leaderboard", "failed")
		return false, model.NewError("leaderboard_store.save", model.ErrData, err)
	}
	if err := WriteFileAtomic(s.path, data, 0o644); err != nil {
		metrics.RecordArtifactSave("leaderboard", "failed")
		return false, model.NewError("leaderboard_store.save", model.ErrData, err)
	}
	metrics.RecordArtifactSave("leaderboard", "written")
	return true, nil
}

// Raw returns the artifact bytes exactly as stored, for fingerprinting.
func (s *LeaderboardStore) Raw(ctx context.Context, id model.EventID) ([]byte, error) {
	lb, _, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if lb == nil {
		lb = model.Leaderboard{}
	}
	out, err := json.Marshal(lb)
	if err != nil {
		return nil, model.NewError("leaderboard_store.raw", model.ErrData, err)
	}
	return out, nil
}
