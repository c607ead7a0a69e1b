// Package lapstore stores raw lap records and serves them per event.
package lapstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/okian/timeattack/internal/domain/model"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - laps table keyed by (event_id, lap_key)
const currentSchemaVersion = 1

// Reader is the read contract used by the leaderboard loop.
type Reader interface {
	// FetchLaps returns every lap of id ordered by upload sequence.
	FetchLaps(ctx context.Context, id model.EventID) ([]model.LapRecord, error)
}

// Writer appends laps. Appending a lap already stored is a no-op.
type Writer interface {
	Append(ctx context.Context, laps []model.LapRecord) (int, error)
}

// SQLiteStore implements Reader and Writer on SQLite in WAL mode.
type SQLiteStore struct {
	db       *sql.DB
	pageSize int
	closed   atomic.Bool
}

// Open creates or opens the lap database at path. Pragmas and schema are
// applied on every open.
func Open(path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, model.NewError("lapstore.open", model.ErrTransport, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, model.NewError("lapstore.open", model.ErrTransport, err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, model.NewError("lapstore.open", model.ErrTransport, err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, model.NewError("lapstore.open", model.ErrTransport, err)
	}

	s := &SQLiteStore{db: db, pageSize: defaultPageSize}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

const insertLap = `INSERT INTO laps
	(event_id, lap_key, driver_guid, driver_name, car_model, track_name, track_config, lap_time_ms, cuts, uploaded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (event_id, lap_key) DO NOTHING`

// Append inserts laps in one transaction and returns how many were new.
func (s *SQLiteStore) Append(ctx context.Context, laps []model.LapRecord) (int, error) {
	if s.closed.Load() {
		return 0, model.NewError("lapstore.append", model.ErrTransport, ErrClosed)
	}
	if len(laps) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, model.NewError("lapstore.append", model.ErrTransport, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertLap)
	if err != nil {
		return 0, model.NewError("lapstore.append", model.ErrTransport, err)
	}
	defer stmt.Close()

	inserted := 0
	for _, l := range laps {
		res, err := stmt.ExecContext(ctx,
			l.EventID.String(), l.LapKey, l.DriverGUID, l.DriverName, l.CarModel,
			l.TrackName, l.TrackConfig, l.LapTimeMS, l.Cuts, unixMilli(l.UploadedAt))
		if err != nil {
			return 0, model.NewError("lapstore.append", model.ErrTransport, fmt.Errorf("lap %s: %w", l.LapKey, err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, model.NewError("lapstore.append", model.ErrTransport, err)
		}
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, model.NewError("lapstore.append", model.ErrTransport, err)
	}
	return inserted, nil
}

const selectPage = `SELECT seq, lap_key, driver_guid, driver_name, car_model, track_name, track_config, lap_time_ms, cuts, uploaded_at
	FROM laps WHERE event_id = ? AND seq > ? ORDER BY seq LIMIT ?`

// FetchLaps returns every lap of id, reading pageSize rows per query.
func (s *SQLiteStore) FetchLaps(ctx context.Context, id model.EventID) ([]model.LapRecord, error) {
	if s.closed.Load() {
		return nil, model.NewError("lapstore.fetch", model.ErrTransport, ErrClosed)
	}
	var (
		out   []model.LapRecord
		after int64
	)
	for {
		page, err := s.page(ctx, id, after)
		if err != nil {
			return nil, model.NewError("lapstore.fetch", model.ErrTransport, err)
		}
		out = append(out, page...)
		if len(page) < s.pageSize {
			return out, nil
		}
		after = page[len(page)-1].UploadSeq
	}
}

func (s *SQLiteStore) page(ctx context.Context, id model.EventID, after int64) ([]model.LapRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectPage, id.String(), after, s.pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	page := make([]model.LapRecord, 0, s.pageSize)
	for rows.Next() {
		l := model.LapRecord{EventID: id}
		var uploaded int64
		if err := rows.Scan(&l.UploadSeq, &l.LapKey, &l.DriverGUID, &l.DriverName, &l.CarModel,
			&l.TrackName, &l.TrackConfig, &l.LapTimeMS, &l.Cuts, &uploaded); err != nil {
			return nil, err
		}
		if uploaded != 0 {
			l.UploadedAt = time.UnixMilli(uploaded).UTC()
		}
		page = append(page, l)
	}
	return page, rows.Err()
}

// Count returns the number of stored laps for id.
func (s *SQLiteStore) Count(ctx context.Context, id model.EventID) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM laps WHERE event_id = ?", id.String()).Scan(&n); err != nil {
		return 0, model.NewError("lapstore.count", model.ErrTransport, err)
	}
	return n, nil
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
