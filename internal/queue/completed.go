package queue

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/utubettl/utubettl/internal/storage/pebble"
)

// CompletedEntry records a task that left the live store, for observability
// only. It is not consulted by any task operation (§4.5).
type CompletedEntry struct {
	ID             uint64 `json:"id"`
	Utube          string `json:"utube"`
	Created        uint64 `json:"created"`
	CompletedAt    uint64 `json:"completed_at"`
	TerminalStatus Status `json:"terminal_status"`
}

// CompletedLog is a bounded, best-effort ring buffer of recently departed
// tasks, trimmed to its configured maximum entry count. Its failure modes never block a task
// operation: callers log and continue rather than fail the operation.
type CompletedLog struct {
	db  *pebblestore.DB
	sp  string
	max int

	mu  sync.Mutex
	seq uint64
}

// NewCompletedLog constructs a CompletedLog capped at max entries.
func NewCompletedLog(db *pebblestore.DB, space string, max int) *CompletedLog {
	if max <= 0 {
		max = 1000
	}
	return &CompletedLog{db: db, sp: space, max: max}
}

// Append records entry and trims the oldest entries once the log exceeds
// its configured maximum.
func (cl *CompletedLog) Append(entry CompletedEntry) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.seq++
	val, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := cl.db.Set(completedKey(cl.sp, cl.seq), val); err != nil {
		return err
	}
	return cl.trimLocked()
}

// List returns up to limit entries, most recently completed first.
func (cl *CompletedLog) List(limit int) ([]CompletedEntry, error) {
	if limit <= 0 || limit > cl.max {
		limit = cl.max
	}

	prefix := completedPrefix(cl.sp)
	lo, hi := keyRange(prefix)
	iter, err := cl.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	entries := make([]CompletedEntry, 0, limit)
	for ok := iter.Last(); ok && len(entries) < limit; ok = iter.Prev() {
		var e CompletedEntry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// trimLocked deletes the oldest entries once the log holds more than max.
// Called with cl.mu held.
func (cl *CompletedLog) trimLocked() error {
	prefix := completedPrefix(cl.sp)
	lo, hi := keyRange(prefix)
	iter, err := cl.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return err
	}

	count := 0
	for ok := iter.First(); ok; ok = iter.Next() {
		count++
	}
	if count <= cl.max {
		return iter.Close()
	}
	excess := count - cl.max

	if !iter.First() {
		return iter.Close()
	}
	batch := cl.db.NewBatch()
	n := 0
	for ok := true; ok && n < excess; ok = iter.Next() {
		if err := batch.Delete(append([]byte(nil), iter.Key()...), nil); err != nil {
			iter.Close()
			batch.Close()
			return err
		}
		n++
	}
	if err := iter.Close(); err != nil {
		batch.Close()
		return err
	}
	return cl.db.CommitBatch(context.Background(), batch)
}
