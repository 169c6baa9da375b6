package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/caifeng/marketone/internal/frame"
)

// Default cache classes. Each class is an independently bounded, independently
// expiring store; the names are referenced by the call-site wrappers and the
// router factories.
const (
	ClassRealtime = "realtime" // live quotes
	ClassHourly   = "hourly"   // intraday history, news
	ClassDaily    = "daily"    // end-of-day series, statements, fundamentals
	ClassWeekly   = "weekly"   // rarely-changing reference lists
)

// ClassConfig configures one named cache class. Created at startup, never
// mutated afterwards; only the class contents change.
type ClassConfig struct {
	Name       string
	MaxEntries int
	TTL        time.Duration
}

// DefaultClasses returns the standard four-tier class set.
func DefaultClasses() []ClassConfig {
	return []ClassConfig{
		{Name: ClassRealtime, MaxEntries: 500, TTL: 60 * time.Second},
		{Name: ClassHourly, MaxEntries: 1000, TTL: time.Hour},
		{Name: ClassDaily, MaxEntries: 2000, TTL: 24 * time.Hour},
		{Name: ClassWeekly, MaxEntries: 100, TTL: 7 * 24 * time.Hour},
	}
}

// StatsSink receives one hit or miss event per lookup, keyed by class name.
type StatsSink interface {
	RecordCacheHit(class string)
	RecordCacheMiss(class string)
}

// nopSink is used when no sink is configured.
type nopSink struct{}

func (nopSink) RecordCacheHit(string)  {}
func (nopSink) RecordCacheMiss(string) {}

// ComputeFunc produces the value for a key on a cache miss.
type ComputeFunc func(ctx context.Context) (*frame.Frame, error)

// BackendFunc builds the backend for one class. It lets the caller decide
// per-class layering (memory only, or memory over redis).
type BackendFunc func(cfg ClassConfig) Cache

// MemoryBackend builds a plain in-memory backend per class.
func MemoryBackend() BackendFunc {
	return func(cfg ClassConfig) Cache {
		return NewMemoryCache(cfg.MaxEntries)
	}
}

// LayeredBackend builds a memory-over-redis backend per class. Class names
// are folded into the redis key space so classes stay disjoint.
func LayeredBackend(l2 *RedisCache) BackendFunc {
	return func(cfg ClassConfig) Cache {
		return NewLayeredCache(NewMemoryCache(cfg.MaxEntries), classPrefixed{l2: l2, class: cfg.Name})
	}
}

// classPrefixed namespaces a shared redis backend per class.
type classPrefixed struct {
	l2    *RedisCache
	class string
}

func (p classPrefixed) Get(ctx context.Context, key string) (*frame.Frame, error) {
	return p.l2.Get(ctx, p.class+":"+key)
}

func (p classPrefixed) Set(ctx context.Context, key string, value *frame.Frame, ttl time.Duration) error {
	return p.l2.Set(ctx, p.class+":"+key, value, ttl)
}

func (p classPrefixed) Delete(ctx context.Context, key string) error {
	return p.l2.Delete(ctx, p.class+":"+key)
}

func (p classPrefixed) Clear(ctx context.Context) error { return nil }

// Close is a no-op: the shared redis client is owned by the caller.
func (p classPrefixed) Close() error { return nil }

// storeClass pairs a class configuration with its backend.
type storeClass struct {
	cfg     ClassConfig
	backend Cache
}

// Store holds the named cache classes and provides the atomic
// check-then-compute entry point used by the wrappers.
//
// Constructed once at process start and passed explicitly; Reset exists for
// tests.
type Store struct {
	classes map[string]*storeClass
	sink    StatsSink
	group   singleflight.Group
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithStatsSink routes hit/miss events to the given sink.
func WithStatsSink(sink StatsSink) StoreOption {
	return func(s *Store) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// NewStore creates a store with one backend per class.
func NewStore(classes []ClassConfig, backend BackendFunc, opts ...StoreOption) (*Store, error) {
	if backend == nil {
		backend = MemoryBackend()
	}

	s := &Store{
		classes: make(map[string]*storeClass, len(classes)),
		sink:    nopSink{},
	}

	for _, cfg := range classes {
		if cfg.Name == "" {
			return nil, errors.New("cache: class name must not be empty")
		}
		if _, dup := s.classes[cfg.Name]; dup {
			return nil, fmt.Errorf("cache: duplicate class %q", cfg.Name)
		}
		if cfg.TTL <= 0 {
			return nil, fmt.Errorf("cache: class %q has non-positive TTL", cfg.Name)
		}
		s.classes[cfg.Name] = &storeClass{cfg: cfg, backend: backend(cfg)}
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// GetOrCompute returns the cached frame for (class, key) when present and
// unexpired, otherwise runs fn, stores the result under the class TTL and
// returns it. The second return value reports a hit.
//
// Concurrent callers for the same class and key share a single compute.
// An unknown class fails fast with ErrUnknownClass. Backend errors other
// than a plain miss propagate; they are never masked by calling fn twice.
func (s *Store) GetOrCompute(ctx context.Context, class, key string, fn ComputeFunc) (*frame.Frame, bool, error) {
	c, ok := s.classes[class]
	if !ok {
		return nil, false, fmt.Errorf("%w: %q (available: %v)", ErrUnknownClass, class, s.Classes())
	}

	if val, err := c.backend.Get(ctx, key); err == nil {
		s.sink.RecordCacheHit(class)
		return val, true, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	s.sink.RecordCacheMiss(class)

	val, err, _ := s.group.Do(class+"\x00"+key, func() (any, error) {
		// Re-check: another caller may have filled the entry while this
		// one waited on the flight group.
		if cached, err := c.backend.Get(ctx, key); err == nil {
			return cached, nil
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}

		computed, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.backend.Set(ctx, key, computed, c.cfg.TTL); err != nil {
			return nil, err
		}
		return computed, nil
	})
	if err != nil {
		return nil, false, err
	}

	return val.(*frame.Frame), false, nil
}

// Invalidate removes one key from one class.
func (s *Store) Invalidate(ctx context.Context, class, key string) error {
	c, ok := s.classes[class]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownClass, class)
	}
	return c.backend.Delete(ctx, key)
}

// Reset clears every class. Test hook.
func (s *Store) Reset(ctx context.Context) error {
	for _, c := range s.classes {
		if err := c.backend.Clear(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Classes returns the configured class names, sorted.
func (s *Store) Classes() []string {
	names := make([]string, 0, len(s.classes))
	for name := range s.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a class is configured.
func (s *Store) Has(class string) bool {
	_, ok := s.classes[class]
	return ok
}

// Close closes every backend.
func (s *Store) Close() error {
	var firstErr error
	for _, c := range s.classes {
		if err := c.backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
