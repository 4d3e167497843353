package queue

import "errors"

// Configuration errors: fatal at construction time.
var (
	ErrInvalidLimit   = errors.New("queue: limit must be a positive integer")
	ErrInvalidTimeout = errors.New("queue: ttl and ttr must be positive durations")
)

// ErrClosed is returned by operations invoked on a space whose store adapter
// has faulted or whose Close has already run.
var ErrClosed = errors.New("queue: space is closed")
