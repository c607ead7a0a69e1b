// Package dedupe remembers recently ingested lap keys so repeated result
// files do not hit the lap store for laps it already holds.
package dedupe

import (
	"context"
	"sync"

	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/pkg/metrics"
)

// Deduper records seen lap identities.
type Deduper interface {
	// SeenAndRecord reports whether key was already recorded and records it if not.
	SeenAndRecord(ctx context.Context, key string) bool
	// Unrecord forgets key so a failed append can be retried.
	Unrecord(ctx context.Context, key string)
	Size() int64
}

type slot struct {
	key  string
	used bool
}

// ringDeduper keeps the newest maxSize keys and evicts the oldest first.
// The lap store is the real idempotency boundary; an evicted key only
// costs a redundant insert that the store ignores.
type ringDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // key -> slot in ring
	ring    []slot
	next    int
	maxSize int
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &ringDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]slot, d.maxSize)
	}
	return d
}

func (d *ringDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize <= 0 {
		d.seen[key] = -1
		metrics.UpdateDedupeSize(int64(len(d.seen)))
		return false
	}
	if old := d.ring[d.next]; old.used {
		delete(d.seen, old.key)
	}
	d.ring[d.next] = slot{key: key, used: true}
	d.seen[key] = d.next
	d.next = (d.next + 1) % d.maxSize
	metrics.UpdateDedupeSize(int64(len(d.seen)))
	return false
}

func (d *ringDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	at, ok := d.seen[key]
	if !ok {
		return
	}
	delete(d.seen, key)
	if at >= 0 {
		d.ring[at] = slot{}
	}
	metrics.UpdateDedupeSize(int64(len(d.seen)))
}

func (d *ringDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}

// Key identifies a lap across events.
func Key(l model.LapRecord) string {
	return l.EventID.String() + "/" + l.LapKey
}

// Fresh returns the laps d has not seen before, recording them, and the
// number skipped as duplicates. Laps repeated within one batch count once.
func Fresh(ctx context.Context, d Deduper, laps []model.LapRecord) ([]model.LapRecord, int) {
	out := make([]model.LapRecord, 0, len(laps))
	dup := 0
	for _, l := range laps {
		if d.SeenAndRecord(ctx, Key(l)) {
			dup++
			continue
		}
		out = append(out, l)
	}
	return out, dup
}

// Forget unrecords every lap in laps.
func Forget(ctx context.Context, d Deduper, laps []model.LapRecord) {
	for _, l := range laps {
		d.Unrecord(ctx, Key(l))
	}
}
