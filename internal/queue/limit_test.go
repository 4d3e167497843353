package queue

import "testing"

func TestLimitForDefaultsToOne(t *testing.T) {
	q, _ := newTestQueue(t, Options{})
	if got := q.limitFor("unconfigured"); got != 1 {
		t.Fatalf("limitFor unconfigured tube = %d, want 1", got)
	}
}

func TestLimitForHonorsConfiguredLimit(t *testing.T) {
	q, _ := newTestQueue(t, Options{Limit: map[string]int{"jobs": 3}})
	if got := q.limitFor("jobs"); got != 3 {
		t.Fatalf("limitFor(jobs) = %d, want 3", got)
	}
}

func TestAdmitBlocksOnceLimitReached(t *testing.T) {
	q, _ := newTestQueue(t, Options{Limit: map[string]int{"jobs": 2}})

	first, err := q.Put([]byte("a"), PutOptions{Utube: "jobs"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	second, err := q.Put([]byte("b"), PutOptions{Utube: "jobs"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	third, err := q.Put([]byte("c"), PutOptions{Utube: "jobs"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	for _, tc := range []struct {
		id   uint64
		want Status
	}{
		{first.ID, StatusReady},
		{second.ID, StatusReady},
		{third.ID, StatusBlocked},
	} {
		got, ok, err := q.Peek(tc.id)
		if err != nil || !ok {
			t.Fatalf("peek %d: %v %v", tc.id, ok, err)
		}
		if got.Status != tc.want {
			t.Fatalf("task %d status = %v, want %v", tc.id, got.Status, tc.want)
		}
	}
}

func TestUnblockOnePromotesOldestBlockedFirst(t *testing.T) {
	q, _ := newTestQueue(t, Options{Limit: map[string]int{"jobs": 1}})

	first, err := q.Put([]byte("a"), PutOptions{Utube: "jobs"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	second, err := q.Put([]byte("b"), PutOptions{Utube: "jobs"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	third, err := q.Put([]byte("c"), PutOptions{Utube: "jobs"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	if _, ok, err := q.Delete(first.ID); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}

	got, ok, err := q.Peek(second.ID)
	if err != nil || !ok {
		t.Fatalf("peek second: %v %v", ok, err)
	}
	if got.Status != StatusReady {
		t.Fatalf("second (oldest blocked) status = %v, want READY", got.Status)
	}

	got, ok, err = q.Peek(third.ID)
	if err != nil || !ok {
		t.Fatalf("peek third: %v %v", ok, err)
	}
	if got.Status != StatusBlocked {
		t.Fatalf("third task status = %v, want still BLOCKED", got.Status)
	}
}

func TestCountUtubeStopsAtMax(t *testing.T) {
	q, _ := newTestQueue(t, Options{Limit: map[string]int{"jobs": 10}})

	for i := 0; i < 5; i++ {
		if _, err := q.Put([]byte("x"), PutOptions{Utube: "jobs"}); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	q.mu.Lock()
	n, err := q.countUtube(StatusReady, "jobs", 3)
	q.mu.Unlock()
	if err != nil {
		t.Fatalf("countUtube: %v", err)
	}
	if n != 3 {
		t.Fatalf("countUtube capped at max=3 returned %d", n)
	}
}
