// Package cache provides the tiered caching layer for market data results:
// bounded TTL backends (memory, redis, layered) grouped into named cache
// classes by the Store, plus call-site wrappers that short-circuit provider
// operations on warm entries.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/caifeng/marketone/internal/frame"
)

var (
	// ErrNotFound is returned when a key is not found in cache
	ErrNotFound = errors.New("cache: key not found")

	// ErrUnknownClass is returned when a cache class name has no
	// configuration. This indicates a configuration bug and is never
	// swallowed.
	ErrUnknownClass = errors.New("cache: unknown cache class")
)

// Cache defines the interface for a single cache backend.
type Cache interface {
	// Get retrieves a frame from cache
	Get(ctx context.Context, key string) (*frame.Frame, error)

	// Set stores a frame in cache with TTL
	Set(ctx context.Context, key string, value *frame.Frame, ttl time.Duration) error

	// Delete removes a key from cache
	Delete(ctx context.Context, key string) error

	// Clear removes every entry from cache
	Clear(ctx context.Context) error

	// Close closes the cache backend
	Close() error
}
