package cache

import (
	"context"
	"time"

	"github.com/caifeng/marketone/internal/frame"
)

// l1BackfillTTL caps how long an L2 hit lives in the memory layer.
const l1BackfillTTL = 1 * time.Minute

// LayeredCache implements a two-tier cache (L1: memory, L2: Redis).
type LayeredCache struct {
	l1 Cache
	l2 Cache
}

// NewLayeredCache creates a new layered cache.
func NewLayeredCache(l1, l2 Cache) *LayeredCache {
	return &LayeredCache{
		l1: l1,
		l2: l2,
	}
}

// Get retrieves a frame from cache (L1 -> L2 -> miss).
func (lc *LayeredCache) Get(ctx context.Context, key string) (*frame.Frame, error) {
	if lc.l1 != nil {
		if val, err := lc.l1.Get(ctx, key); err == nil {
			return val, nil
		}
	}

	if lc.l2 != nil {
		val, err := lc.l2.Get(ctx, key)
		if err == nil {
			// Backfill L1 cache on L2 hit
			if lc.l1 != nil {
				_ = lc.l1.Set(ctx, key, val, l1BackfillTTL)
			}
			return val, nil
		}
	}

	return nil, ErrNotFound
}

// Set stores a frame in both cache layers (write-through).
func (lc *LayeredCache) Set(ctx context.Context, key string, value *frame.Frame, ttl time.Duration) error {
	var l1Err, l2Err error

	if lc.l1 != nil {
		l1TTL := ttl
		if ttl > l1BackfillTTL {
			l1TTL = l1BackfillTTL
		}
		l1Err = lc.l1.Set(ctx, key, value, l1TTL)
	}

	if lc.l2 != nil {
		l2Err = lc.l2.Set(ctx, key, value, ttl)
	}

	// Return error only if both failed
	if l1Err != nil && l2Err != nil {
		return l2Err
	}

	return nil
}

// Delete removes a key from both cache layers.
func (lc *LayeredCache) Delete(ctx context.Context, key string) error {
	var l1Err, l2Err error

	if lc.l1 != nil {
		l1Err = lc.l1.Delete(ctx, key)
	}

	if lc.l2 != nil {
		l2Err = lc.l2.Delete(ctx, key)
	}

	if l1Err != nil {
		return l1Err
	}
	return l2Err
}

// Clear clears both cache layers.
func (lc *LayeredCache) Clear(ctx context.Context) error {
	var l1Err, l2Err error

	if lc.l1 != nil {
		l1Err = lc.l1.Clear(ctx)
	}

	if lc.l2 != nil {
		l2Err = lc.l2.Clear(ctx)
	}

	if l1Err != nil {
		return l1Err
	}
	return l2Err
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	var l1Err, l2Err error

	if lc.l1 != nil {
		l1Err = lc.l1.Close()
	}

	if lc.l2 != nil {
		l2Err = lc.l2.Close()
	}

	if l1Err != nil {
		return l1Err
	}
	return l2Err
}
