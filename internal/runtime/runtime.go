package runtime

import (
	"context"
	"errors"
	"sync"

	cfgpkg "github.com/utubettl/utubettl/internal/config"
	"github.com/utubettl/utubettl/internal/queue"
	pebblestore "github.com/utubettl/utubettl/internal/storage/pebble"
	"github.com/utubettl/utubettl/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	// DataDir is ignored: utubettl is an in-memory service, so the
	// underlying store always opens against pebble's in-memory vfs.
	DataDir string
	Fsync   pebblestore.FsyncMode
	Config  cfgpkg.Config
	Logger  log.Logger
	// OnTaskChange, when set, is attached to every space this Runtime
	// opens or creates.
	OnTaskChange queue.OnTaskChange
}

// Runtime wires storage, config, and the set of open spaces for a
// single-node instance.
type Runtime struct {
	db     *pebblestore.DB
	config cfgpkg.Config
	logger log.Logger
	onTask queue.OnTaskChange

	mu     sync.Mutex
	spaces map[string]*queue.Queue
}

// Open initializes the underlying in-memory store and returns a Runtime
// with no spaces open yet.
func Open(opts Options) (*Runtime, error) {
	db, err := pebblestore.OpenMem()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewLogger(log.WithLevel(log.InfoLevel))
	}
	rt := &Runtime{
		db:     db,
		config: opts.Config,
		logger: logger.WithComponent("runtime"),
		onTask: opts.OnTaskChange,
		spaces: make(map[string]*queue.Queue),
	}
	return rt, nil
}

// Close closes every open space and the underlying store.
func (r *Runtime) Close() error {
	r.mu.Lock()
	spaces := make([]*queue.Queue, 0, len(r.spaces))
	for _, q := range r.spaces {
		spaces = append(spaces, q)
	}
	r.spaces = make(map[string]*queue.Queue)
	r.mu.Unlock()

	for _, q := range spaces {
		if err := q.Close(); err != nil {
			r.logger.Warn("space close failed", log.Err(err))
		}
	}
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple health check against the underlying store.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// spaceLimits resolves the per-utube limit map for a newly created or
// reopened space, from configured defaults.
func (r *Runtime) spaceLimits() map[string]int {
	if r.config.SpaceDefaults.Limit == nil {
		return nil
	}
	limits := make(map[string]int, len(r.config.SpaceDefaults.Limit))
	for k, v := range r.config.SpaceDefaults.Limit {
		limits[k] = v
	}
	return limits
}

// CreateSpace provisions a new space (idempotent) and returns its open
// Queue and metadata. A caller-supplied opts.Limit is persisted with the
// space and takes priority; when omitted, the space falls back to the
// process-wide SpaceDefaults.Limit.
func (r *Runtime) CreateSpace(name string, opts queue.SpaceOptions) (*queue.Queue, queue.SpaceMeta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(opts.Limit) == 0 {
		opts.Limit = r.spaceLimits()
	}

	if q, ok := r.spaces[name]; ok {
		meta, err := queue.CreateSpace(r.db, name, opts)
		return q, meta, err
	}

	meta, err := queue.CreateSpace(r.db, name, opts)
	if err != nil {
		return nil, queue.SpaceMeta{}, err
	}
	q, err := queue.New(r.db, name, r.onTask, queue.Options{
		Limit:      meta.Limit,
		DefaultTTL: meta.TTL,
		DefaultTTR: meta.TTR,
		DefaultPri: meta.Pri,
		Logger:     r.logger,
	})
	if err != nil {
		return nil, queue.SpaceMeta{}, err
	}
	r.spaces[name] = q
	return q, meta, nil
}

// GetSpace returns the open Queue for name, opening it from its persisted
// metadata (or creating it with defaults) if it is not already open.
func (r *Runtime) GetSpace(name string) (*queue.Queue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if q, ok := r.spaces[name]; ok {
		return q, nil
	}
	q, _, err := queue.OpenSpace(r.db, name, r.onTask, r.spaceLimits())
	if err != nil {
		return nil, err
	}
	r.spaces[name] = q
	return q, nil
}

// ListSpaces returns the names of every space opened in this Runtime.
func (r *Runtime) ListSpaces() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.spaces))
	for name := range r.spaces {
		names = append(names, name)
	}
	return names
}

// EnsureDefaultSpace opens or creates the runtime's configured default
// space, mirroring the behavior a fresh server needs at startup.
func (r *Runtime) EnsureDefaultSpace() (*queue.Queue, error) {
	d := r.config.SpaceDefaults
	_, _, err := r.CreateSpace(r.config.DefaultSpace, queue.SpaceOptions{TTL: d.TTL, TTR: d.TTR, Pri: d.Pri, Limit: d.Limit})
	if err != nil {
		return nil, err
	}
	return r.GetSpace(r.config.DefaultSpace)
}

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
