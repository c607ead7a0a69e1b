// Package ledger keeps crash-recovery state in BadgerDB: which result files
// were ingested and which channel message last carried each publish target.
// Nothing here is authoritative; message hints are verified against the
// channel before use.
package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/okian/timeattack/internal/domain/model"
)

const (
	filePrefix = "file/"
	msgPrefix  = "msg/"
)

// ErrClosed is returned by operations on a closed ledger.
var ErrClosed = errors.New("ledger closed")

// FileRecord describes an ingested result file.
type FileRecord struct {
	EventID     string    `json:"event_id"`
	Laps        int       `json:"laps"`
	Inserted    int       `json:"inserted"`
	ProcessedAt time.Time `json:"processed_at"`
}

// MessageHint is the last known message carrying a publish target.
type MessageHint struct {
	MessageID string    `json:"message_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ledger is a BadgerDB-backed key-value ledger.
type Ledger struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

// Open opens or creates a ledger in dir.
func Open(dir string) (*Ledger, error) {
	return open(badger.DefaultOptions(dir).WithLogger(nil))
}

// OpenInMemory opens a ledger that lives only as long as the process.
func OpenInMemory() (*Ledger, error) {
	return open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
}

func open(opts badger.Options) (*Ledger, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, model.NewError("ledger.open", model.ErrData, err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.db.Close()
}

func (l *Ledger) check() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}
	return nil
}

func (l *Ledger) get(key string, v any) (bool, error) {
	if err := l.check(); err != nil {
		return false, err
	}
	found := false
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	return found, err
}

func (l *Ledger) set(key string, v any) error {
	if err := l.check(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (l *Ledger) delete(key string) error {
	if err := l.check(); err != nil {
		return err
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// FileProcessed reports whether name was already ingested.
func (l *Ledger) FileProcessed(_ context.Context, name string) (bool, error) {
	var rec FileRecord
	ok, err := l.get(filePrefix+name, &rec)
	if err != nil {
		return false, model.NewError("ledger.file_processed", model.ErrData, err)
	}
	return ok, nil
}

// MarkFileProcessed records that name was ingested.
func (l *Ledger) MarkFileProcessed(_ context.Context, name string, rec FileRecord) error {
	if err := l.set(filePrefix+name, rec); err != nil {
		return model.NewError("ledger.mark_file", model.ErrData, err)
	}
	return nil
}

// ProcessedFiles lists every ingested file name in sorted order.
func (l *Ledger) ProcessedFiles(_ context.Context) ([]string, error) {
	if err := l.check(); err != nil {
		return nil, model.NewError("ledger.files", model.ErrData, err)
	}
	var names []string
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(filePrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, string(it.Item().Key()[len(filePrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, model.NewError("ledger.files", model.ErrData, err)
	}
	sort.Strings(names)
	return names, nil
}

// Hint returns the remembered message id of target.
func (l *Ledger) Hint(_ context.Context, target string) (string, bool, error) {
	var h MessageHint
	ok, err := l.get(msgPrefix+target, &h)
	if err != nil {
		return "", false, model.NewError("ledger.hint", model.ErrData, err)
	}
	return h.MessageID, ok && h.MessageID != "", nil
}

// SetHint remembers messageID as the carrier of target.
func (l *Ledger) SetHint(_ context.Context, target, messageID string) error {
	if err := l.set(msgPrefix+target, MessageHint{MessageID: messageID, UpdatedAt: time.Now().UTC()}); err != nil {
		return model.NewError("ledger.set_hint", model.ErrData, err)
	}
	return nil
}

// DropHint forgets the message id of target.
func (l *Ledger) DropHint(_ context.Context, target string) error {
	if err := l.delete(msgPrefix + target); err != nil {
		return model.NewError("ledger.drop_hint", model.ErrData, err)
	}
	return nil
}
