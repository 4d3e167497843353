// Package runtime wires the in-memory store and config into a single-node
// utubettl instance. It exposes Open/Close, a health check, and space
// management (CreateSpace/GetSpace/ListSpaces) backed by internal/queue.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	q, _ := rt.GetSpace("default")
//	task, _ := q.Put([]byte("hello"), queue.PutOptions{})
package runtime
