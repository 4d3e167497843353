package queue

import (
	"testing"
	"time"
)

// waitForStatus polls Peek until the task reaches want or the deadline
// passes, so tests can observe timekeeper-driven transitions without
// depending on its exact wakeup timing.
func waitForStatus(t *testing.T, q *Queue, id uint64, want Status, timeout time.Duration) Task {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		got, ok, err := q.Peek(id)
		if err != nil {
			t.Fatalf("peek: %v", err)
		}
		if ok && got.Status == want {
			return got
		}
		if time.Now().After(deadline) {
			if !ok {
				t.Fatalf("task %d disappeared before reaching status %v", id, want)
			}
			t.Fatalf("task %d still %v after %v, want %v", id, got.Status, timeout, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// waitForGone polls Peek until the task is no longer present or the
// deadline passes.
func waitForGone(t *testing.T, q *Queue, id uint64, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		_, ok, err := q.Peek(id)
		if err != nil {
			t.Fatalf("peek: %v", err)
		}
		if !ok {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("task %d still present after %v", id, timeout)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTimekeeperPromotesDelayedTaskToReady(t *testing.T) {
	q, _ := newTestQueue(t, Options{})

	task, err := q.Put([]byte("a"), PutOptions{Delay: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if task.Status != StatusDelayed {
		t.Fatalf("status = %v, want DELAYED", task.Status)
	}

	waitForStatus(t, q, task.ID, StatusReady, time.Second)
}

func TestTimekeeperBlockedDelayedTaskGoesBlockedNotReady(t *testing.T) {
	q, _ := newTestQueue(t, Options{Limit: map[string]int{"jobs": 1}})

	holder, err := q.Put([]byte("holder"), PutOptions{Utube: "jobs"})
	if err != nil {
		t.Fatalf("put holder: %v", err)
	}
	if _, _, err := q.Take(); err != nil {
		t.Fatalf("take holder: %v", err)
	}

	task, err := q.Put([]byte("a"), PutOptions{Utube: "jobs", Delay: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if task.Status != StatusDelayed {
		t.Fatalf("status = %v, want DELAYED", task.Status)
	}

	// Once the delay elapses, admit() finds the tube at its limit (holder is
	// still TAKEN) and routes the task to BLOCKED instead of READY.
	waitForStatus(t, q, task.ID, StatusBlocked, time.Second)

	if _, _, err := q.Delete(holder.ID); err != nil {
		t.Fatalf("delete holder: %v", err)
	}
	waitForStatus(t, q, task.ID, StatusReady, time.Second)
}

func TestTimekeeperReturnsExpiredTakenTaskToReady(t *testing.T) {
	q, _ := newTestQueue(t, Options{})

	ttr := 20 * time.Millisecond
	task, err := q.Put([]byte("a"), PutOptions{TTR: &ttr})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	taken, ok, err := q.Take()
	if err != nil || !ok || taken.ID != task.ID {
		t.Fatalf("take: %v %v %+v", ok, err, taken)
	}

	waitForStatus(t, q, task.ID, StatusReady, time.Second)
}

func TestTimekeeperExpiresReadyTaskOnTTLAndLogsCompletion(t *testing.T) {
	q, _ := newTestQueue(t, Options{})

	ttl := 20 * time.Millisecond
	task, err := q.Put([]byte("a"), PutOptions{TTL: &ttl})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	waitForGone(t, q, task.ID, time.Second)

	entries, err := q.completed.List(10)
	if err != nil {
		t.Fatalf("completed list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("completed entries = %d, want 1", len(entries))
	}
	if entries[0].ID != task.ID {
		t.Fatalf("completed entry id = %d, want %d", entries[0].ID, task.ID)
	}
	if entries[0].TerminalStatus != StatusDone {
		t.Fatalf("terminal status = %v, want DONE", entries[0].TerminalStatus)
	}
}

func TestTimekeeperEmitsEventNoneForTimeoutTransitions(t *testing.T) {
	q, events := newTestQueue(t, Options{})

	task, err := q.Put([]byte("a"), PutOptions{Delay: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	// Drain the synchronous EventPut before waiting on the timekeeper's
	// own event.
	<-events

	waitForStatus(t, q, task.ID, StatusReady, time.Second)

	select {
	case ev := <-events:
		if ev.kind != EventNone {
			t.Fatalf("event kind = %v, want EventNone for a timekeeper-driven transition", ev.kind)
		}
		if ev.task.Status != StatusReady {
			t.Fatalf("event task status = %v, want READY", ev.task.Status)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for timekeeper event")
	}
}
