package queue

import (
	"testing"
	"time"

	pebblestore "github.com/utubettl/utubettl/internal/storage/pebble"
	"github.com/utubettl/utubettl/pkg/log"
)

type changeEvent struct {
	task Task
	kind EventKind
}

// newTestQueue builds a Queue over a fresh in-memory store and returns a
// buffered channel fed by every emitted change event, so tests can assert on
// ordering and event kind without racing the timekeeper goroutine.
func newTestQueue(t *testing.T, opts Options) (*Queue, chan changeEvent) {
	t.Helper()
	db, err := pebblestore.OpenMem()
	if err != nil {
		t.Fatalf("open mem: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	events := make(chan changeEvent, 256)
	opts.Logger = log.NewLogger(log.WithLevel(log.ErrorLevel))

	q, err := New(db, "sp1", func(task Task, kind EventKind) {
		select {
		case events <- changeEvent{task: task, kind: kind}:
		default:
		}
	}, opts)
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q, events
}

func TestPutAssignsMonotoneIDs(t *testing.T) {
	q, _ := newTestQueue(t, Options{})

	first, err := q.Put([]byte("a"), PutOptions{})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if first.ID != 0 {
		t.Fatalf("first id = %d, want 0", first.ID)
	}
	if first.Status != StatusReady {
		t.Fatalf("status = %v, want READY", first.Status)
	}

	second, err := q.Put([]byte("b"), PutOptions{})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if second.ID != 1 {
		t.Fatalf("second id = %d, want 1", second.ID)
	}
}

func TestPutWithDelayIsDelayed(t *testing.T) {
	q, _ := newTestQueue(t, Options{})

	task, err := q.Put([]byte("x"), PutOptions{Delay: time.Hour})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if task.Status != StatusDelayed {
		t.Fatalf("status = %v, want DELAYED", task.Status)
	}

	got, ok, err := q.Peek(task.ID)
	if err != nil || !ok {
		t.Fatalf("peek: %v %v", ok, err)
	}
	if got.Status != StatusDelayed {
		t.Fatalf("peeked status = %v, want DELAYED", got.Status)
	}
}

func TestTakeReturnsHighestPriorityReady(t *testing.T) {
	// Both tasks share the default "" tube; a limit of 2 keeps them both
	// READY so Take chooses between them by priority alone.
	q, _ := newTestQueue(t, Options{Limit: map[string]int{"": 2}})

	low := int32(10)
	high := int32(-5)
	if _, err := q.Put([]byte("low"), PutOptions{Pri: &low}); err != nil {
		t.Fatalf("put low: %v", err)
	}
	wantTask, err := q.Put([]byte("high"), PutOptions{Pri: &high})
	if err != nil {
		t.Fatalf("put high: %v", err)
	}

	got, ok, err := q.Take()
	if err != nil || !ok {
		t.Fatalf("take: %v %v", ok, err)
	}
	if got.ID != wantTask.ID {
		t.Fatalf("took id %d, want the lower-numbered priority task id %d", got.ID, wantTask.ID)
	}
	if got.Status != StatusTaken {
		t.Fatalf("status = %v, want TAKEN", got.Status)
	}
}

func TestTakeOnEmptyReturnsFalse(t *testing.T) {
	q, _ := newTestQueue(t, Options{})

	_, ok, err := q.Take()
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if ok {
		t.Fatalf("expected no task available")
	}
}

func TestReleaseWithoutDelayGoesBlockedThenUnblocks(t *testing.T) {
	q, _ := newTestQueue(t, Options{Limit: map[string]int{"jobs": 1}})

	task, err := q.Put([]byte("a"), PutOptions{Utube: "jobs"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	taken, ok, err := q.Take()
	if err != nil || !ok || taken.ID != task.ID {
		t.Fatalf("take: %v %v %+v", ok, err, taken)
	}

	released, ok, err := q.Release(task.ID, ReleaseOptions{})
	if err != nil || !ok {
		t.Fatalf("release: %v %v", ok, err)
	}
	// With limit 1 and no other tasks in the tube, the sole released task
	// re-admits to READY via unblockOne rather than staying BLOCKED.
	got, ok, err := q.Peek(released.ID)
	if err != nil || !ok {
		t.Fatalf("peek: %v %v", ok, err)
	}
	if got.Status != StatusReady {
		t.Fatalf("status = %v, want READY after unblock", got.Status)
	}
}

func TestReleaseWithDelayGoesDelayed(t *testing.T) {
	q, _ := newTestQueue(t, Options{})

	task, err := q.Put([]byte("a"), PutOptions{})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, _, err := q.Take(); err != nil {
		t.Fatalf("take: %v", err)
	}

	released, ok, err := q.Release(task.ID, ReleaseOptions{Delay: time.Hour})
	if err != nil || !ok {
		t.Fatalf("release: %v %v", ok, err)
	}
	if released.Status != StatusDelayed {
		t.Fatalf("status = %v, want DELAYED", released.Status)
	}
}

func TestDeleteRemovesTaskAndUnblocksTube(t *testing.T) {
	q, _ := newTestQueue(t, Options{Limit: map[string]int{"jobs": 1}})

	first, err := q.Put([]byte("a"), PutOptions{Utube: "jobs"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	second, err := q.Put([]byte("b"), PutOptions{Utube: "jobs"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := q.Peek(second.ID)
	if err != nil || !ok {
		t.Fatalf("peek: %v %v", ok, err)
	}
	if got.Status != StatusBlocked {
		t.Fatalf("second task status = %v, want BLOCKED under limit 1", got.Status)
	}

	if _, ok, err := q.Delete(first.ID); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}

	got, ok, err = q.Peek(second.ID)
	if err != nil || !ok {
		t.Fatalf("peek after delete: %v %v", ok, err)
	}
	if got.Status != StatusReady {
		t.Fatalf("second task status = %v, want READY after delete unblocks tube", got.Status)
	}

	if _, ok, err := q.Peek(first.ID); err != nil || ok {
		t.Fatalf("expected deleted task to be gone, ok=%v err=%v", ok, err)
	}
}

func TestBuryAndKick(t *testing.T) {
	q, _ := newTestQueue(t, Options{})

	task, err := q.Put([]byte("a"), PutOptions{})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	buried, ok, err := q.Bury(task.ID)
	if err != nil || !ok {
		t.Fatalf("bury: %v %v", ok, err)
	}
	if buried.Status != StatusBuried {
		t.Fatalf("status = %v, want BURIED", buried.Status)
	}

	n, err := q.Kick(1)
	if err != nil {
		t.Fatalf("kick: %v", err)
	}
	if n != 1 {
		t.Fatalf("kicked = %d, want 1", n)
	}

	got, ok, err := q.Peek(task.ID)
	if err != nil || !ok {
		t.Fatalf("peek: %v %v", ok, err)
	}
	if got.Status != StatusReady {
		t.Fatalf("status = %v, want READY after kick", got.Status)
	}
}

func TestKickStopsWhenNoBuriedTasksRemain(t *testing.T) {
	q, _ := newTestQueue(t, Options{})

	task, err := q.Put([]byte("a"), PutOptions{})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, _, err := q.Bury(task.ID); err != nil {
		t.Fatalf("bury: %v", err)
	}

	n, err := q.Kick(5)
	if err != nil {
		t.Fatalf("kick: %v", err)
	}
	if n != 1 {
		t.Fatalf("kicked = %d, want 1 even though 5 was requested", n)
	}
}

func TestPeekMissingTask(t *testing.T) {
	q, _ := newTestQueue(t, Options{})

	_, ok, err := q.Peek(999)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if ok {
		t.Fatalf("expected no task at id 999")
	}
}

func TestEventsFireForEveryTransition(t *testing.T) {
	q, events := newTestQueue(t, Options{})

	task, err := q.Put([]byte("a"), PutOptions{})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, _, err := q.Take(); err != nil {
		t.Fatalf("take: %v", err)
	}
	if _, _, err := q.Delete(task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	wantKinds := []EventKind{EventPut, EventTake, EventDelete}
	for _, want := range wantKinds {
		select {
		case ev := <-events:
			if ev.kind != want {
				t.Fatalf("event kind = %v, want %v", ev.kind, want)
			}
		default:
			t.Fatalf("missing event %v", want)
		}
	}
}
