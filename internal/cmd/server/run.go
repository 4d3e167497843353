package serverrun

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cfgpkg "github.com/utubettl/utubettl/internal/config"
	"github.com/utubettl/utubettl/internal/queue"
	"github.com/utubettl/utubettl/internal/runtime"
	httpserver "github.com/utubettl/utubettl/internal/server/http"
	logpkg "github.com/utubettl/utubettl/pkg/log"
)

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// small wrapper around os.Getenv, kept as a variable so it can be swapped out
var getenv = func(key string) string { return os.Getenv(key) }

// Options configures Run.
type Options struct {
	HTTPAddr string
	Config   cfgpkg.Config
}

// Run opens an in-memory runtime, ensures the configured default space
// exists, and serves the HTTP API until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &logpkg.Config{
		Level:  getenvDefault("UTUBETTL_LOG_LEVEL", opts.Config.LogLevel),
		Format: getenvDefault("UTUBETTL_LOG_FORMAT", opts.Config.LogFormat),
	}
	procLogger, err := logpkg.ApplyConfig(cfg)
	if err != nil {
		lvl := logpkg.InfoLevel
		if l, e := logpkg.ParseLevel(cfg.Level); e == nil {
			lvl = l
		}
		procLogger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}
	logpkg.RedirectStdLog(procLogger)

	onTaskChange := func(task queue.Task, kind queue.EventKind) {
		procLogger.Debug("task change",
			logpkg.Uint64("id", task.ID),
			logpkg.Str("status", task.Status.String()),
			logpkg.Str("event", string(kind)),
			logpkg.Str("utube", task.Utube),
		)
	}

	rt, err := runtime.Open(runtime.Options{Config: opts.Config, Logger: procLogger, OnTaskChange: onTaskChange})
	if err != nil {
		return err
	}
	defer rt.Close()

	if _, err := rt.EnsureDefaultSpace(); err != nil {
		return err
	}

	procLogger.Info("starting utubettl server",
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("level", cfg.Level),
		logpkg.Str("format", cfg.Format),
		logpkg.Str("default_space", opts.Config.DefaultSpace),
	)

	hsrv := httpserver.New(rt, procLogger)
	defer hsrv.Close()
	return hsrv.ListenAndServe(sctx, opts.HTTPAddr)
}
