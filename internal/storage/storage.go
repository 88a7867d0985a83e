package storage

import (
	"errors"
	"time"
)

var (
	ErrCacheMiss    = errors.New("cache miss")
	ErrInvalidEntry = errors.New("invalid cache entry")
	// ErrStale is returned by Set when one of the entry's tags was
	// invalidated after the entry's generation was read.
	ErrStale = errors.New("stale cache entry")
)

// Entry is a cached backend response.
type Entry struct {
	Status   int       `json:"status"`
	Body     []byte    `json:"body"`
	Tags     []string  `json:"tags"`
	StoredAt time.Time `json:"stored_at"`
	// Generation is what Generation(tags...) reported before the response
	// was fetched.
	Generation uint64 `json:"generation"`
}
