// Package cache provides small byte caches keyed by string.
//
// The version resolver keeps the latest vendor version string here. Two
// backends exist: [FileCache], which stores each key as a plain file and
// treats the file's modification time as the write time, and [RedisCache],
// for deployments running more than one redirect instance. [NullCache]
// disables caching.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidKey is returned when a key cannot be mapped onto the backend.
var ErrInvalidKey = errors.New("invalid cache key")

// Cache stores opaque values under string keys for a fixed time-to-live.
//
// Get reports hit=false with a nil error on a miss or an expired entry.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Entry describes a cached value for inspection commands.
type Entry struct {
	Key       string
	Size      int
	UpdatedAt time.Time
}
