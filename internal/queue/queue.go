package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/utubettl/utubettl/internal/storage/pebble"
	"github.com/utubettl/utubettl/pkg/log"
)

// Options configures a Queue's defaults and per-utube limits.
type Options struct {
	// Limit maps a utube name to its positive concurrency limit. A tube
	// absent from the map defaults to 1.
	Limit map[string]int
	// DefaultTTL, DefaultTTR, and DefaultPri seed Put when a caller's
	// PutOptions omit them. DefaultTTL defaults to PracticalInfinityMicros;
	// DefaultTTR defaults to the resolved ttl; DefaultPri defaults to 0.
	DefaultTTL time.Duration
	DefaultTTR time.Duration
	DefaultPri int32
	// CompletedLogSize bounds the completion log (§4.5); 0 selects a
	// built-in default.
	CompletedLogSize int
	// Logger receives timekeeper diagnostics. An info-level console logger
	// is used when nil.
	Logger log.Logger
}

// PutOptions overlay a queue's defaults for a single Put call.
type PutOptions struct {
	TTL   *time.Duration
	TTR   *time.Duration
	Pri   *int32
	Utube string
	Delay time.Duration
}

// ReleaseOptions overlay release behavior: a positive Delay reroutes the
// task to DELAYED instead of BLOCKED.
type ReleaseOptions struct {
	Delay time.Duration
}

// Queue is a single space's in-memory priority task queue.
type Queue struct {
	db    *pebblestore.DB
	space string

	mu     sync.Mutex
	limits map[string]int

	defaultTTL uint64
	defaultTTR uint64
	defaultPri int32

	onTaskChange OnTaskChange
	wake         chan struct{}
	cancel       context.CancelFunc
	wg           sync.WaitGroup

	logger    log.Logger
	completed *CompletedLog

	fatal error
}

// New constructs a Queue over db for the named space and starts its
// timekeeper. Any non-positive limit in opts.Limit is a configuration
// error and New returns ErrInvalidLimit without starting anything.
func New(db *pebblestore.DB, space string, onTaskChange OnTaskChange, opts Options) (*Queue, error) {
	limits := make(map[string]int, len(opts.Limit))
	for tube, l := range opts.Limit {
		if l <= 0 {
			return nil, fmt.Errorf("%w: utube %q has limit %d", ErrInvalidLimit, tube, l)
		}
		limits[tube] = l
	}

	defaultTTLMicros := PracticalInfinityMicros
	if opts.DefaultTTL > 0 {
		defaultTTLMicros = uint64(opts.DefaultTTL / time.Microsecond)
	}
	defaultTTRMicros := defaultTTLMicros
	if opts.DefaultTTR > 0 {
		defaultTTRMicros = uint64(opts.DefaultTTR / time.Microsecond)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.NewLogger(log.WithLevel(log.InfoLevel))
	}

	completedSize := opts.CompletedLogSize
	if completedSize <= 0 {
		completedSize = 1000
	}

	q := &Queue{
		db:           db,
		space:        space,
		limits:       limits,
		defaultTTL:   defaultTTLMicros,
		defaultTTR:   defaultTTRMicros,
		defaultPri:   opts.DefaultPri,
		onTaskChange: onTaskChange,
		wake:         make(chan struct{}, 1),
		logger:       logger.WithComponent("queue").WithField("space", space),
		completed:    NewCompletedLog(db, space, completedSize),
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.wg.Add(1)
	go q.runTimekeeper(ctx)

	return q, nil
}

// Close stops the timekeeper, waits for it to exit, and marks the space
// closed: every task operation invoked afterward returns ErrClosed.
func (q *Queue) Close() error {
	q.cancel()
	q.wg.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fatal == nil {
		q.fatal = ErrClosed
	}
	return nil
}

func (q *Queue) commit(b *pebble.Batch) error {
	return q.db.CommitBatch(context.Background(), b)
}

// putIndexes writes the primary record and the three secondary index
// entries for t.
func (q *Queue) putIndexes(b *pebble.Batch, t Task) error {
	val, err := encodeTask(t)
	if err != nil {
		return err
	}
	if err := b.Set(primaryKey(q.space, t.ID), val, nil); err != nil {
		return err
	}
	if err := b.Set(statusPriKey(q.space, t.Status, t.Pri, t.ID), nil, nil); err != nil {
		return err
	}
	if err := b.Set(watchKey(q.space, t.Status, t.NextEvent, t.ID), nil, nil); err != nil {
		return err
	}
	if err := b.Set(utubeKey(q.space, t.Status, t.Utube, t.ID), nil, nil); err != nil {
		return err
	}
	return nil
}

// deleteIndexes removes the primary record and the three secondary index
// entries that t currently occupies.
func (q *Queue) deleteIndexes(b *pebble.Batch, t Task) error {
	if err := b.Delete(primaryKey(q.space, t.ID), nil); err != nil {
		return err
	}
	if err := b.Delete(statusPriKey(q.space, t.Status, t.Pri, t.ID), nil); err != nil {
		return err
	}
	if err := b.Delete(watchKey(q.space, t.Status, t.NextEvent, t.ID), nil); err != nil {
		return err
	}
	if err := b.Delete(utubeKey(q.space, t.Status, t.Utube, t.ID), nil); err != nil {
		return err
	}
	return nil
}

// loadTask fetches a task record by id.
func (q *Queue) loadTask(id uint64) (Task, bool, error) {
	val, err := q.db.Get(primaryKey(q.space, id))
	if err != nil {
		if err == pebble.ErrNotFound {
			return Task{}, false, nil
		}
		return Task{}, false, err
	}
	t, err := decodeTask(val)
	if err != nil {
		return Task{}, false, err
	}
	return t, true, nil
}

// nextID computes max(primary)+1, or 0 if the space has no tasks yet (I2).
func (q *Queue) nextID() (uint64, error) {
	prefix := primaryPrefix(q.space)
	lo, hi := keyRange(prefix)
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	if !iter.Last() {
		return 0, nil
	}
	return idFromKey(iter.Key()) + 1, nil
}

func (q *Queue) fail(err error) {
	if q.fatal == nil {
		q.fatal = err
		q.logger.Error("space fatal error", log.Err(err))
	}
}

// Put inserts a new task and returns it.
func (q *Queue) Put(data []byte, opts PutOptions) (Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fatal != nil {
		return Task{}, q.fatal
	}

	id, err := q.nextID()
	if err != nil {
		q.fail(err)
		return Task{}, err
	}

	ttl := q.defaultTTL
	if opts.TTL != nil {
		if *opts.TTL <= 0 {
			return Task{}, fmt.Errorf("%w: ttl %s", ErrInvalidTimeout, *opts.TTL)
		}
		ttl = uint64(*opts.TTL / time.Microsecond)
	}
	ttr := q.defaultTTR
	if opts.TTR != nil {
		if *opts.TTR <= 0 {
			return Task{}, fmt.Errorf("%w: ttr %s", ErrInvalidTimeout, *opts.TTR)
		}
		ttr = uint64(*opts.TTR / time.Microsecond)
	}
	pri := q.defaultPri
	if opts.Pri != nil {
		pri = *opts.Pri
	}
	utube := opts.Utube

	now := nowMicros()
	var status Status
	var nextEvent uint64
	effTTL := ttl
	if opts.Delay > 0 {
		delayUs := uint64(opts.Delay / time.Microsecond)
		status = StatusDelayed
		effTTL = ttl + delayUs
		nextEvent = now + delayUs
	} else {
		status, err = q.admit(utube)
		if err != nil {
			q.fail(err)
			return Task{}, err
		}
		nextEvent = now + ttl
	}

	task := Task{
		ID:        id,
		Status:    status,
		NextEvent: nextEvent,
		TTL:       effTTL,
		TTR:       ttr,
		Pri:       pri,
		Created:   now,
		Utube:     utube,
		Data:      data,
	}

	batch := q.db.NewBatch()
	if err := q.putIndexes(batch, task); err != nil {
		batch.Close()
		q.fail(err)
		return Task{}, err
	}
	if err := q.commit(batch); err != nil {
		q.fail(err)
		return Task{}, err
	}

	q.emit(task, EventPut)
	return task, nil
}

// Take returns the highest-priority READY task in the space, or
// (Task{}, false, nil) if none is currently READY.
func (q *Queue) Take() (Task, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fatal != nil {
		return Task{}, false, q.fatal
	}

	old, ok, err := q.headOfStatus(StatusReady)
	if err != nil {
		q.fail(err)
		return Task{}, false, err
	}
	if !ok {
		return Task{}, false, nil
	}

	next := old
	next.Status = StatusTaken
	next.NextEvent = nowMicros() + next.TTR

	batch := q.db.NewBatch()
	if err := q.deleteIndexes(batch, old); err != nil {
		batch.Close()
		q.fail(err)
		return Task{}, false, err
	}
	if err := q.putIndexes(batch, next); err != nil {
		batch.Close()
		q.fail(err)
		return Task{}, false, err
	}
	if err := q.commit(batch); err != nil {
		q.fail(err)
		return Task{}, false, err
	}

	q.emit(next, EventTake)
	return next, true, nil
}

// Release returns a TAKEN, READY, or BLOCKED task to circulation: DELAYED
// when opts.Delay is positive, otherwise BLOCKED (the aging fairness path
// that unblockOne then re-promotes).
func (q *Queue) Release(id uint64, opts ReleaseOptions) (Task, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fatal != nil {
		return Task{}, false, q.fatal
	}

	old, ok, err := q.loadTask(id)
	if err != nil {
		q.fail(err)
		return Task{}, false, err
	}
	if !ok {
		return Task{}, false, nil
	}
	prior := old.Status

	next := old
	if opts.Delay > 0 {
		delayUs := uint64(opts.Delay / time.Microsecond)
		next.Status = StatusDelayed
		next.NextEvent = nowMicros() + delayUs
		next.TTL += delayUs
	} else {
		next.Status = StatusBlocked
		next.NextEvent = next.Created + next.TTL
	}

	batch := q.db.NewBatch()
	if err := q.deleteIndexes(batch, old); err != nil {
		batch.Close()
		q.fail(err)
		return Task{}, false, err
	}
	if err := q.putIndexes(batch, next); err != nil {
		batch.Close()
		q.fail(err)
		return Task{}, false, err
	}
	if err := q.commit(batch); err != nil {
		q.fail(err)
		return Task{}, false, err
	}

	q.emit(next, EventRelease)

	if prior == StatusReady || prior == StatusTaken {
		if err := q.unblockOne(next.Utube); err != nil {
			q.fail(err)
			return next, true, err
		}
	}
	return next, true, nil
}

// Delete removes a task from the store, emitting a synthetic DONE event and
// appending it to the completion log.
func (q *Queue) Delete(id uint64) (Task, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fatal != nil {
		return Task{}, false, q.fatal
	}

	task, ok, err := q.loadTask(id)
	if err != nil {
		q.fail(err)
		return Task{}, false, err
	}
	if !ok {
		return Task{}, false, nil
	}
	prior := task.Status

	batch := q.db.NewBatch()
	if err := q.deleteIndexes(batch, task); err != nil {
		batch.Close()
		q.fail(err)
		return Task{}, false, err
	}
	if err := q.commit(batch); err != nil {
		q.fail(err)
		return Task{}, false, err
	}

	task.Status = StatusDone
	if err := q.completed.Append(CompletedEntry{
		ID:             task.ID,
		Utube:          task.Utube,
		Created:        task.Created,
		CompletedAt:    nowMicros(),
		TerminalStatus: StatusDone,
	}); err != nil {
		q.logger.Warn("completion log append failed", log.Err(err))
	}

	q.emit(task, EventDelete)

	if prior == StatusReady || prior == StatusTaken {
		if err := q.unblockOne(task.Utube); err != nil {
			q.fail(err)
			return task, true, err
		}
	}
	return task, true, nil
}

// Bury sets a task's status to BURIED unconditionally, leaving next_event
// untouched.
func (q *Queue) Bury(id uint64) (Task, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fatal != nil {
		return Task{}, false, q.fatal
	}

	old, ok, err := q.loadTask(id)
	if err != nil {
		q.fail(err)
		return Task{}, false, err
	}
	if !ok {
		return Task{}, false, nil
	}
	prior := old.Status

	next := old
	next.Status = StatusBuried

	batch := q.db.NewBatch()
	if err := q.deleteIndexes(batch, old); err != nil {
		batch.Close()
		q.fail(err)
		return Task{}, false, err
	}
	if err := q.putIndexes(batch, next); err != nil {
		batch.Close()
		q.fail(err)
		return Task{}, false, err
	}
	if err := q.commit(batch); err != nil {
		q.fail(err)
		return Task{}, false, err
	}

	q.emit(next, EventBury)

	if prior == StatusReady || prior == StatusTaken {
		if err := q.unblockOne(next.Utube); err != nil {
			q.fail(err)
			return next, true, err
		}
	}
	return next, true, nil
}

// Kick re-admits up to n BURIED tasks in status_pri order (smallest pri,
// then smallest id) and returns the number actually kicked.
func (q *Queue) Kick(n int) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fatal != nil {
		return 0, q.fatal
	}

	kicked := 0
	for i := 0; i < n; i++ {
		old, ok, err := q.headOfStatus(StatusBuried)
		if err != nil {
			q.fail(err)
			return kicked, err
		}
		if !ok {
			break
		}

		next := old
		next.Status, err = q.admit(next.Utube)
		if err != nil {
			q.fail(err)
			return kicked, err
		}

		batch := q.db.NewBatch()
		if err := q.deleteIndexes(batch, old); err != nil {
			batch.Close()
			q.fail(err)
			return kicked, err
		}
		if err := q.putIndexes(batch, next); err != nil {
			batch.Close()
			q.fail(err)
			return kicked, err
		}
		if err := q.commit(batch); err != nil {
			q.fail(err)
			return kicked, err
		}

		q.emit(next, EventKick)
		kicked++
	}
	return kicked, nil
}

// Peek looks up a task without changing its state.
func (q *Queue) Peek(id uint64) (Task, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fatal != nil {
		return Task{}, false, q.fatal
	}
	return q.loadTask(id)
}

// headOfStatus returns the first task currently in status by status_pri
// ordering (smallest pri, then id); it serves Take and Kick. Earliest-deadline
// lookups go through watchHead instead.
func (q *Queue) headOfStatus(status Status) (Task, bool, error) {
	prefix := statusPriPrefix(q.space, status)
	lo, hi := keyRange(prefix)
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return Task{}, false, err
	}
	ok := iter.First()
	if !ok {
		return Task{}, false, iter.Close()
	}
	id := idFromKey(iter.Key())
	if err := iter.Close(); err != nil {
		return Task{}, false, err
	}
	return q.loadTask(id)
}

// watchHead returns the earliest-deadline task currently in status, per the
// watch index (used exclusively by the timekeeper).
func (q *Queue) watchHead(status Status) (Task, bool, error) {
	prefix := watchPrefix(q.space, status)
	lo, hi := keyRange(prefix)
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return Task{}, false, err
	}
	ok := iter.First()
	if !ok {
		return Task{}, false, iter.Close()
	}
	id := idFromKey(iter.Key())
	if err := iter.Close(); err != nil {
		return Task{}, false, err
	}
	return q.loadTask(id)
}
