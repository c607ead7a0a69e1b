package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/okian/timeattack/internal/adapters/ledger"
	"github.com/okian/timeattack/internal/adapters/mq/queue"
	"github.com/okian/timeattack/internal/adapters/mq/worker"
	"github.com/okian/timeattack/internal/domain/dedupe"
	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/pkg/logger"
	"github.com/okian/timeattack/pkg/metrics"
)

// IngestReport counts one ingestion pass.
type IngestReport struct {
	Files      int // new files handled
	Skipped    int // files already in the ledger
	Failed     int
	Laps       int
	Inserted   int
	Duplicates int
}

// IngestResults appends the laps of every unprocessed result file to the
// lap store, tagged with the active event. A malformed file is reported
// and retried on the next pass; a store failure stops the pass.
func (s *Service) IngestResults(ctx context.Context) (IngestReport, error) {
	const op = "service.ingest"
	var report IngestReport

	active, err := s.ActiveEvent(ctx)
	if err != nil {
		return report, err
	}
	event, err := s.eventFor(ctx, active.EventID)
	if err != nil {
		// Unscheduled keys such as the fallback still collect laps.
		event = model.Event{ID: active.EventID}
	}

	names, err := s.resultFiles()
	if err != nil {
		return report, model.NewError(op, model.ErrData, err)
	}

	var pending []string
	for _, name := range names {
		done, err := s.files.FileProcessed(ctx, name)
		if err != nil {
			return report, err
		}
		if done {
			report.Skipped++
			continue
		}
		pending = append(pending, name)
	}

	decoded, err := s.decodeFiles(ctx, pending)
	if err != nil {
		return report, err
	}

	// Store in name order so upload order is reproducible.
	var failures []error
	for _, r := range decoded {
		var n ledger.FileRecord
		err := r.Err
		if err == nil {
			n, err = s.storeFile(ctx, r, event)
		}
		if err != nil {
			if errors.Is(err, model.ErrData) {
				report.Failed++
				metrics.RecordResultFile("failed")
				s.logger.Warn(ctx, "result file rejected", logger.String("file", r.Name), logger.Error(err))
				failures = append(failures, err)
				continue
			}
			metrics.RecordResultFile("failed")
			return report, err
		}
		report.Files++
		report.Laps += n.Laps
		report.Inserted += n.Inserted
		report.Duplicates += n.Laps - n.Inserted
		metrics.RecordResultFile("processed")
	}

	if report.Inserted > 0 {
		s.notify(LoopIngest)
	}
	if report.Files > 0 {
		s.logger.Info(ctx, "result files ingested",
			logger.String("event", active.EventID.String()),
			logger.Int("files", report.Files),
			logger.Int("laps", report.Laps),
			logger.Int("inserted", report.Inserted))
	}
	return report, errors.Join(failures...)
}

// decodeFiles reads and decodes names on the worker pool. Results come back
// in the order of names.
func (s *Service) decodeFiles(ctx context.Context, names []string) ([]worker.Result, error) {
	const op = "service.decode_files"
	if len(names) == 0 {
		return nil, nil
	}
	jobs := queue.NewInMemoryQueue(queue.WithCapacity(len(names)))
	for i, name := range names {
		if !jobs.Enqueue(ctx, queue.Job{Seq: i, Name: name, Path: filepath.Join(s.resultsDir, name)}) {
			return nil, model.NewError(op, model.ErrData, fmt.Errorf("decode queue refused %s", name))
		}
	}
	if err := jobs.Close(); err != nil {
		return nil, err
	}

	out := make([]worker.Result, len(names))
	got := 0
	for r := range worker.NewPool(s.ingestWorkers, jobs, worker.DecoderFunc(worker.DecodeFile)).Start(ctx) {
		out[r.Seq] = r
		got++
	}
	if got != len(names) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, model.NewError(op, model.ErrData, fmt.Errorf("decoded %d of %d files", got, len(names)))
	}
	return out, nil
}

func (s *Service) storeFile(ctx context.Context, r worker.Result, event model.Event) (ledger.FileRecord, error) {
	name, file := r.Name, r.File
	recs, stats := file.Records(event, r.ModTime)
	if stats.Blank > 0 {
		s.logger.Warn(ctx, "laps without driver skipped", logger.String("file", name), logger.Int("laps", stats.Blank))
	}

	fresh, dup := dedupe.Fresh(ctx, s.deduper, recs)
	inserted, err := s.laps.Append(ctx, fresh)
	if err != nil {
		dedupe.Forget(ctx, s.deduper, fresh)
		return ledger.FileRecord{}, err
	}
	metrics.RecordLapsIngested(inserted)
	metrics.RecordLapsDuplicate(dup + len(fresh) - inserted)

	rec := ledger.FileRecord{
		EventID:     event.ID.String(),
		Laps:        len(recs),
		Inserted:    inserted,
		ProcessedAt: s.now(),
	}
	if err := s.files.MarkFileProcessed(ctx, name, rec); err != nil {
		return ledger.FileRecord{}, err
	}
	return rec, nil
}

// resultFiles lists *.json files in the results directory by name. A
// missing directory holds no files.
func (s *Service) resultFiles() ([]string, error) {
	if s.resultsDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(s.resultsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
