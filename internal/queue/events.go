package queue

import "github.com/utubettl/utubettl/pkg/log"

// EventKind names the operation that produced a task-change event. The zero
// value denotes a timekeeper-driven transition, which has no operation name.
type EventKind string

const (
	EventNone    EventKind = ""
	EventPut     EventKind = "put"
	EventTake    EventKind = "take"
	EventRelease EventKind = "release"
	EventDelete  EventKind = "delete"
	EventBury    EventKind = "bury"
	EventKick    EventKind = "kick"
)

// OnTaskChange is invoked after every state transition with a snapshot of
// the affected task and the operation that caused it.
type OnTaskChange func(task Task, kind EventKind)

// wakeTimekeeper performs a non-blocking send on the wake channel. Spurious
// or dropped wakeups are harmless: the timekeeper will recompute its
// deadline on its next scan regardless.
func (q *Queue) wakeTimekeeper() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// emit wakes the timekeeper, releases the space mutex the caller is
// holding, and only then invokes the user callback, so user code never runs
// while the store is locked. A panicking callback is recovered and logged;
// it never propagates back into a task operation or the timekeeper loop.
func (q *Queue) emit(task Task, kind EventKind) {
	q.wakeTimekeeper()
	q.mu.Unlock()
	defer q.mu.Lock()
	if q.onTaskChange == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("task change callback panicked", log.Any("panic", r))
		}
	}()
	q.onTaskChange(task, kind)
}
