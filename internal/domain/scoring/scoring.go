// Package scoring turns one event leaderboard into per-driver points.
package scoring

import (
	"fmt"
	"math"

	"github.com/okian/timeattack/internal/domain/model"
)

// Strategy names accepted by New.
const (
	NameRelative = "relative"
	NamePosition = "position"
)

// Default scoring configuration constants.
const (
	defaultRelativeScale = 101
)

// DefaultPositionPoints is the table used when none is configured.
var DefaultPositionPoints = []float64{10, 7, 5, 3, 2, 1} //nolint:gochecknoglobals // read-only default table

// Strategy scores a published leaderboard. Keys of the result are driver
// identities as returned by LeaderboardEntry.Identity.
type Strategy interface {
	Name() string
	Score(lb model.Leaderboard) map[string]float64
}

// PositionTable awards fixed points by finishing position.
type PositionTable struct {
	points []float64
}

// NewPositionTable creates a position strategy. An empty table falls back to DefaultPositionPoints.
func NewPositionTable(points []float64) *PositionTable {
	if len(points) == 0 {
		points = DefaultPositionPoints
	}
	table := make([]float64, len(points))
	copy(table, points)
	return &PositionTable{points: table}
}

// Name implements Strategy.
func (p *PositionTable) Name() string { return NamePosition }

// Score implements Strategy. Positions beyond the table score 0.
func (p *PositionTable) Score(lb model.Leaderboard) map[string]float64 {
	out := make(map[string]float64, len(lb))
	for i, e := range lb {
		pts := 0.0
		if i < len(p.points) {
			pts = p.points[i]
		}
		out[e.Identity()] = pts
	}
	return out
}

// RelativePerformance awards scale * winner / lap, rounded to two decimals.
// The event winner always scores exactly scale.
type RelativePerformance struct {
	scale float64
}

// NewRelativePerformance creates a relative strategy. A non-positive scale uses 101.
func NewRelativePerformance(scale float64) *RelativePerformance {
	if scale <= 0 {
		scale = defaultRelativeScale
	}
	return &RelativePerformance{scale: scale}
}

// Name implements Strategy.
func (r *RelativePerformance) Name() string { return NameRelative }

// Score implements Strategy.
func (r *RelativePerformance) Score(lb model.Leaderboard) map[string]float64 {
	out := make(map[string]float64, len(lb))
	winner, ok := lb.Winner()
	if !ok || winner.LapMS <= 0 {
		return out
	}
	for _, e := range lb {
		if e.LapMS <= 0 {
			continue
		}
		out[e.Identity()] = Round2(r.scale * float64(winner.LapMS) / float64(e.LapMS))
	}
	return out
}

// New returns the strategy registered under name.
func New(name string, opts ...Option) (Strategy, error) {
	cfg := settings{relativeScale: defaultRelativeScale}
	for _, opt := range opts {
		opt(&cfg)
	}
	switch name {
	case NameRelative, "":
		return NewRelativePerformance(cfg.relativeScale), nil
	case NamePosition:
		return NewPositionTable(cfg.positionPoints), nil
	default:
		return nil, model.NewError("scoring.new", model.ErrConfig, fmt.Errorf("%w: %q", ErrUnknownStrategy, name))
	}
}

// Round2 rounds x to two decimal places, halves away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
