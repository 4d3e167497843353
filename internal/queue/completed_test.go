package queue

import (
	"testing"

	pebblestore "github.com/utubettl/utubettl/internal/storage/pebble"
)

func TestCompletedLogListsMostRecentFirst(t *testing.T) {
	db, err := pebblestore.OpenMem()
	if err != nil {
		t.Fatalf("open mem: %v", err)
	}
	defer db.Close()

	cl := NewCompletedLog(db, "sp1", 10)
	for i := uint64(0); i < 3; i++ {
		if err := cl.Append(CompletedEntry{ID: i, TerminalStatus: StatusDone}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := cl.List(0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if entries[0].ID != 2 {
		t.Fatalf("entries[0].ID = %d, want 2 (most recent first)", entries[0].ID)
	}
	if entries[2].ID != 0 {
		t.Fatalf("entries[2].ID = %d, want 0 (oldest last)", entries[2].ID)
	}
}

func TestCompletedLogTrimsToMax(t *testing.T) {
	db, err := pebblestore.OpenMem()
	if err != nil {
		t.Fatalf("open mem: %v", err)
	}
	defer db.Close()

	cl := NewCompletedLog(db, "sp1", 3)
	for i := uint64(0); i < 10; i++ {
		if err := cl.Append(CompletedEntry{ID: i, TerminalStatus: StatusDone}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := cl.List(0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3 after trimming", len(entries))
	}
	// The three most recently appended survive; earlier ones are trimmed.
	if entries[0].ID != 9 || entries[2].ID != 7 {
		t.Fatalf("unexpected surviving entries: %+v", entries)
	}
}

func TestCompletedLogListRespectsLimit(t *testing.T) {
	db, err := pebblestore.OpenMem()
	if err != nil {
		t.Fatalf("open mem: %v", err)
	}
	defer db.Close()

	cl := NewCompletedLog(db, "sp1", 10)
	for i := uint64(0); i < 5; i++ {
		if err := cl.Append(CompletedEntry{ID: i}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := cl.List(2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
}
