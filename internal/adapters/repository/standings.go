package repository

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/pkg/logger"
	"github.com/okian/timeattack/pkg/metrics"
)

// StandingsStore keeps one JSON array per season at <dir>/<season>.json.
type StandingsStore struct {
	dir  string
	mu   sync.Mutex
	opts storeOptions
}

// NewStandingsStore creates a store rooted at dir.
func NewStandingsStore(dir string, opts ...Option) *StandingsStore {
	return &StandingsStore{dir: dir, opts: applyOptions("standings-store", opts)}
}

// Path returns the artifact location of season.
func (s *StandingsStore) Path(season string) string {
	return filepath.Join(s.dir, season+".json")
}

// Dir returns the directory holding every season file.
func (s *StandingsStore) Dir() string { return s.dir }

// Load returns the stored standings of season, empty when missing or malformed.
func (s *StandingsStore) Load(ctx context.Context, season string) ([]model.StandingsEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, _, err := s.load(ctx, season)
	return table, err
}

// Get returns the stored standings of season; ok is false when no table is
// stored or the stored one is unreadable.
func (s *StandingsStore) Get(ctx context.Context, season string) ([]model.StandingsEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, season)
}

func (s *StandingsStore) load(ctx context.Context, season string) ([]model.StandingsEntry, bool, error) {
	data, err := readFile(s.Path(season))
	if err != nil {
		return nil, false, model.NewError("standings_store.load", model.ErrData, err)
	}
	var out []model.StandingsEntry
	if len(data) == 0 {
		return out, false, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		s.opts.logger.Warn(ctx, "standings artifact malformed, starting fresh",
			logger.String("season", season),
			logger.Error(model.NewError("standings_store.load", model.ErrData, err)))
		return nil, false, nil
	}
	return out, true, nil
}

// Save replaces the standings of season. Entries are stored sorted by
// total points, descending. An identical table is not rewritten.
func (s *StandingsStore) Save(ctx context.Context, season string, table []model.StandingsEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := make([]model.StandingsEntry, len(table))
	copy(sorted, table)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalPoints > sorted[j].TotalPoints
	})

	data, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		metrics.RecordArtifactSave("standings", "failed")
		return false, model.NewError("standings_store.save", model.ErrData, err)
	}
	if cur, err := readFile(s.Path(season)); err == nil && string(cur) == string(data) {
		metrics.RecordArtifactSave("standings", "unchanged")
		return false, nil
	}
	if err := WriteFileAtomic(s.Path(season), data, 0o644); err != nil {
		metrics.RecordArtifactSave("standings", "failed")
		return false, model.NewError("standings_store.save", model.ErrData, err)
	}
	metrics.RecordArtifactSave("standings", "written")
	return true, nil
}

// Raw returns the stored bytes of season, nil when nothing is stored.
func (s *StandingsStore) Raw(_ context.Context, season string) ([]byte, error) {
	data, err := readFile(s.Path(season))
	if err != nil {
		return nil, model.NewError("standings_store.raw", model.ErrData, err)
	}
	return data, nil
}

// Seasons lists the seasons with a stored artifact.
func (s *StandingsStore) Seasons() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewError("standings_store.seasons", model.ErrData, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		out = append(out, e.Name()[:len(e.Name())-len(".json")])
	}
	sort.Strings(out)
	return out, nil
}
