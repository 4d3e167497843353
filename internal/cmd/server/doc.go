// Package serverrun exposes a shared Run entrypoint used by the CLI to start
// the utubettl HTTP server against an in-memory runtime, handling lifecycle
// and shutdown.
//
// Example:
//
//	opts := serverrun.Options{HTTPAddr: ":8080", Config: config.Default()}
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, opts)
package serverrun
