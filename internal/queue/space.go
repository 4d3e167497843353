package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	pebblestore "github.com/utubettl/utubettl/internal/storage/pebble"
)

// SpaceMeta is the metadata record persisted for a space by CreateSpace.
type SpaceMeta struct {
	Name string `json:"name"`
	// InstanceID distinguishes one incarnation of a space from another
	// recreated under the same Name, for correlating completion-log
	// entries and external references across the space's lifetime.
	InstanceID  string         `json:"instance_id"`
	CreatedAtMs int64          `json:"created_at_ms"`
	TTL         time.Duration  `json:"ttl"`
	TTR         time.Duration  `json:"ttr"`
	Pri         int32          `json:"pri"`
	Limit       map[string]int `json:"limit,omitempty"`
	Temporary   bool           `json:"temporary"`
}

// SpaceOptions configures CreateSpace. A zero TTL or TTR is left unset in
// the persisted metadata and resolved to PracticalInfinityMicros (500
// practical-infinity years) by New/OpenSpace when the space's Queue is
// constructed; an unset TTR falls back to TTL. Pri defaults to 0. Limit maps
// a utube name to its positive concurrency limit and is persisted verbatim;
// a tube absent from it defaults to 1 (see Options.Limit).
type SpaceOptions struct {
	TTL       time.Duration
	TTR       time.Duration
	Pri       int32
	Limit     map[string]int
	Temporary bool
}

func spaceMetaKey(space string) []byte {
	return []byte("spmeta/" + space)
}

// CreateSpace provisions the backing key prefix for a named space and
// persists its metadata record. It is idempotent: calling it again for an
// existing space returns the stored metadata unchanged rather than an
// error, mirroring this lineage's namespace provisioning.
func CreateSpace(db *pebblestore.DB, name string, opts SpaceOptions) (SpaceMeta, error) {
	key := spaceMetaKey(name)
	if b, err := db.Get(key); err == nil && len(b) > 0 {
		var existing SpaceMeta
		if err := json.Unmarshal(b, &existing); err == nil {
			return existing, nil
		}
	}

	// A zero TTL/TTR is left unresolved here rather than materialized as a
	// "practical infinity" Duration (which cannot represent a 500-year
	// span): New resolves it to PracticalInfinityMicros in microsecond
	// space when the space's Queue is constructed.
	ttr := opts.TTR
	if ttr <= 0 {
		ttr = opts.TTL
	}

	meta := SpaceMeta{
		Name:        name,
		InstanceID:  uuid.NewString(),
		CreatedAtMs: time.Now().UnixMilli(),
		TTL:         opts.TTL,
		TTR:         ttr,
		Pri:         opts.Pri,
		Limit:       opts.Limit,
		Temporary:   opts.Temporary,
	}
	val, err := json.Marshal(meta)
	if err != nil {
		return SpaceMeta{}, err
	}
	if err := db.Set(key, val); err != nil {
		return SpaceMeta{}, err
	}
	return meta, nil
}

// OpenSpace loads an existing space's metadata and constructs its Queue.
// fallbackLimits seeds a freshly-created space's persisted Limit and covers
// a space whose metadata predates per-space limits; a space with its own
// persisted meta.Limit always uses that instead.
func OpenSpace(db *pebblestore.DB, name string, onTaskChange OnTaskChange, fallbackLimits map[string]int) (*Queue, SpaceMeta, error) {
	key := spaceMetaKey(name)
	b, err := db.Get(key)
	if err != nil || len(b) == 0 {
		meta, cerr := CreateSpace(db, name, SpaceOptions{Limit: fallbackLimits})
		if cerr != nil {
			return nil, SpaceMeta{}, cerr
		}
		q, qerr := New(db, name, onTaskChange, Options{Limit: meta.Limit, DefaultTTL: meta.TTL, DefaultTTR: meta.TTR, DefaultPri: meta.Pri})
		return q, meta, qerr
	}

	var meta SpaceMeta
	if err := json.Unmarshal(b, &meta); err != nil {
		return nil, SpaceMeta{}, err
	}
	limits := meta.Limit
	if len(limits) == 0 {
		limits = fallbackLimits
	}
	q, err := New(db, name, onTaskChange, Options{Limit: limits, DefaultTTL: meta.TTL, DefaultTTR: meta.TTR, DefaultPri: meta.Pri})
	return q, meta, err
}
