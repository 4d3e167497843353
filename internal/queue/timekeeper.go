package queue

import (
	"context"
	"time"

	"github.com/utubettl/utubettl/pkg/log"
)

// runTimekeeper is the space's single long-lived worker. It scans the three
// timeout regimes (delay, ttl, ttr) on each iteration and sleeps until the tightest upcoming
// deadline or an external wake, whichever comes first.
func (q *Queue) runTimekeeper(ctx context.Context) {
	defer q.wg.Done()

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		estimated, fatal := q.scanOnce()
		if fatal {
			q.logger.Error("timekeeper stopping after fatal store error")
			return
		}
		if estimated <= 0 {
			continue
		}

		timer.Reset(estimated)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		case <-q.wake:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
	}
}

// scanOnce performs one pass over the delayed head, the three TTL heads,
// and the TTR head, applying every due transition it finds. It returns the
// duration to sleep before the next scan is required (0 means rescan
// immediately) and whether a fatal store error occurred.
func (q *Queue) scanOnce() (time.Duration, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.fatal != nil {
		return 0, true
	}

	const noDeadline = time.Duration(1<<63 - 1)
	estimated := noDeadline
	progressed := false
	now := nowMicros()

	update := func(next uint64) {
		if now >= next {
			return
		}
		d := microsToDuration(next - now)
		if d < estimated {
			estimated = d
		}
	}

	// Delayed head.
	if t, ok, err := q.watchHead(StatusDelayed); err != nil {
		q.fail(err)
		return 0, true
	} else if ok && t.Status == StatusDelayed {
		if now >= t.NextEvent {
			if err := q.transitionTimeout(t, func(next *Task) {
				var admitErr error
				next.Status, admitErr = q.admit(next.Utube)
				if admitErr != nil {
					q.fail(admitErr)
				}
				next.NextEvent = next.Created + next.TTL
			}); err != nil {
				q.fail(err)
				return 0, true
			}
			progressed = true
		} else {
			update(t.NextEvent)
		}
	}

	// TTL heads: READY, BLOCKED, BURIED.
	for _, status := range [...]Status{StatusReady, StatusBlocked, StatusBuried} {
		t, ok, err := q.watchHead(status)
		if err != nil {
			q.fail(err)
			return 0, true
		}
		if !ok || t.Status != status {
			continue
		}
		if now >= t.NextEvent {
			if err := q.expireTimeout(t); err != nil {
				q.fail(err)
				return 0, true
			}
			progressed = true
			continue
		}
		update(t.NextEvent)
	}

	// TTR head: TAKEN.
	if t, ok, err := q.watchHead(StatusTaken); err != nil {
		q.fail(err)
		return 0, true
	} else if ok && t.Status == StatusTaken {
		if now >= t.NextEvent {
			if err := q.transitionTimeout(t, func(next *Task) {
				next.Status = StatusReady
				next.NextEvent = next.Created + next.TTL
			}); err != nil {
				q.fail(err)
				return 0, true
			}
			progressed = true
		} else {
			update(t.NextEvent)
		}
	}

	if progressed {
		return 0, false
	}
	if estimated == noDeadline {
		return time.Hour, false
	}
	return estimated, false
}

// transitionTimeout applies mutate to a copy of old, rewrites the indexes,
// and emits a timekeeper-driven (EventNone) change event. Must be called
// with q.mu held.
func (q *Queue) transitionTimeout(old Task, mutate func(next *Task)) error {
	next := old
	mutate(&next)

	batch := q.db.NewBatch()
	if err := q.deleteIndexes(batch, old); err != nil {
		batch.Close()
		return err
	}
	if err := q.putIndexes(batch, next); err != nil {
		batch.Close()
		return err
	}
	if err := q.commit(batch); err != nil {
		return err
	}

	q.emit(next, EventNone)
	return nil
}

// expireTimeout removes a task whose ttl has elapsed, appends it to the
// completion log, and emits a synthetic DONE event. No unblockOne is
// performed here even when the expiring task was READY: a deliberate
// simplicity choice carried over unchanged (see the design notes).
func (q *Queue) expireTimeout(t Task) error {
	batch := q.db.NewBatch()
	if err := q.deleteIndexes(batch, t); err != nil {
		batch.Close()
		return err
	}
	if err := q.commit(batch); err != nil {
		return err
	}

	t.Status = StatusDone
	if err := q.completed.Append(CompletedEntry{
		ID:             t.ID,
		Utube:          t.Utube,
		Created:        t.Created,
		CompletedAt:    nowMicros(),
		TerminalStatus: StatusDone,
	}); err != nil {
		q.logger.Warn("completion log append failed", log.Err(err))
	}

	q.emit(t, EventNone)
	return nil
}
