// Package httpserver provides a minimal REST gateway over a Runtime's
// utubettl spaces: task put/take/release/delete/bury/kick and completion
// history, plus a health check.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{Config: config.Default()})
//	s := httpserver.New(rt, nil)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
