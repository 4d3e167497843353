package queue

import "github.com/cockroachdb/pebble"

// limitFor returns the configured concurrency limit for a micro-tube,
// defaulting to 1 when the tube has no explicit entry.
func (q *Queue) limitFor(utube string) int {
	if l, ok := q.limits[utube]; ok {
		return l
	}
	return 1
}

// countUtube counts tasks in (status, utube), stopping once max keys have
// been seen. It bounds index probes the way the utube index is meant to.
func (q *Queue) countUtube(status Status, utube string, max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}
	prefix := utubePrefix(q.space, status, utube)
	lo, hi := keyRange(prefix)
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	n := 0
	for ok := iter.First(); ok && n < max; ok = iter.Next() {
		n++
	}
	return n, nil
}

// admit computes the admission state for a task entering (or re-entering,
// via kick or unblock) a micro-tube: READY if it fits under the limit,
// BLOCKED otherwise. Must be called with q.mu held.
func (q *Queue) admit(utube string) (Status, error) {
	limit := q.limitFor(utube)

	taken, err := q.countUtube(StatusTaken, utube, limit)
	if err != nil {
		return StatusUnknown, err
	}
	sum := taken
	if sum < limit {
		ready, err := q.countUtube(StatusReady, utube, limit-sum)
		if err != nil {
			return StatusUnknown, err
		}
		sum += ready
	}
	if sum < limit {
		return StatusReady, nil
	}
	return StatusBlocked, nil
}

// unblockOne promotes the oldest BLOCKED task in utube to READY, if one
// exists. It is called by any operation that removes a READY or TAKEN task
// from utube, preserving I1. Must be called with q.mu held.
func (q *Queue) unblockOne(utube string) error {
	prefix := utubePrefix(q.space, StatusBlocked, utube)
	lo, hi := keyRange(prefix)
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return err
	}
	ok := iter.First()
	if !ok {
		return iter.Close()
	}
	id := idFromKey(iter.Key())
	if cerr := iter.Close(); cerr != nil {
		return cerr
	}

	old, found, err := q.loadTask(id)
	if err != nil {
		return err
	}
	if !found || old.Status != StatusBlocked {
		return nil
	}

	next := old
	next.Status = StatusReady
	next.NextEvent = next.Created + next.TTL

	batch := q.db.NewBatch()
	defer batch.Close()
	if err := q.deleteIndexes(batch, old); err != nil {
		return err
	}
	if err := q.putIndexes(batch, next); err != nil {
		return err
	}
	if err := q.commit(batch); err != nil {
		return err
	}

	q.emit(next, EventNone)
	return nil
}
