package runtime

import (
	"context"
	"testing"

	cfgpkg "github.com/utubettl/utubettl/internal/config"
	"github.com/utubettl/utubettl/internal/queue"
)

func TestOpenCloseHealth(t *testing.T) {
	rt, err := Open(Options{Config: cfgpkg.Default()})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	defer rt.Close()
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestCreateAndGetSpace(t *testing.T) {
	rt, err := Open(Options{Config: cfgpkg.Default()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()

	q, meta, err := rt.CreateSpace("jobs", queue.SpaceOptions{Pri: 2})
	if err != nil {
		t.Fatalf("create space: %v", err)
	}
	if meta.Name != "jobs" || meta.Pri != 2 {
		t.Fatalf("unexpected meta: %+v", meta)
	}

	again, err := rt.GetSpace("jobs")
	if err != nil {
		t.Fatalf("get space: %v", err)
	}
	if again != q {
		t.Fatalf("expected GetSpace to return the same open Queue instance")
	}

	names := rt.ListSpaces()
	if len(names) != 1 || names[0] != "jobs" {
		t.Fatalf("unexpected space list: %v", names)
	}
}

func TestEnsureDefaultSpace(t *testing.T) {
	rt, err := Open(Options{Config: cfgpkg.Default()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()

	q, err := rt.EnsureDefaultSpace()
	if err != nil {
		t.Fatalf("ensure default space: %v", err)
	}
	task, err := q.Put([]byte("hello"), queue.PutOptions{})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if task.ID != 0 {
		t.Fatalf("expected first task id 0, got %d", task.ID)
	}
}
