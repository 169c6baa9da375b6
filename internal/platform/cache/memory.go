package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/caifeng/marketone/internal/frame"
)

// memoryItem represents an item in the memory cache
type memoryItem struct {
	key        string
	value      *frame.Frame
	expiration time.Time
}

// MemoryCache implements a bounded in-memory cache with TTL support.
// When the cache overflows, expired entries are dropped first; if that is
// not enough, the oldest-inserted entry is evicted.
type MemoryCache struct {
	maxEntries int
	items      map[string]*list.Element
	order      *list.List // front: newest inserted, back: oldest
	mu         sync.RWMutex
	stopCh     chan struct{}
	stopOnce   sync.Once
}

// NewMemoryCache creates a new in-memory cache holding at most maxEntries
// live entries.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 1000 // default max size
	}

	cache := &MemoryCache{
		maxEntries: maxEntries,
		items:      make(map[string]*list.Element),
		order:      list.New(),
		stopCh:     make(chan struct{}),
	}

	// Background sweep for expired entries
	go cache.cleanup()

	return cache
}

// Get retrieves a frame from cache. Expired entries are removed and
// reported as misses.
func (c *MemoryCache) Get(ctx context.Context, key string) (*frame.Frame, error) {
	c.mu.RLock()
	element, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		return nil, ErrNotFound
	}

	item := element.Value.(*memoryItem)

	if time.Now().After(item.expiration) {
		c.mu.Lock()
		c.remove(key)
		c.mu.Unlock()
		return nil, ErrNotFound
	}

	return item.value, nil
}

// Set stores a frame in cache with TTL.
func (c *MemoryCache) Set(ctx context.Context, key string, value *frame.Frame, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiration := time.Now().Add(ttl)

	if element, exists := c.items[key]; exists {
		// Re-inserting a key resets its age
		item := element.Value.(*memoryItem)
		item.value = value
		item.expiration = expiration
		c.order.MoveToFront(element)
		return nil
	}

	item := &memoryItem{
		key:        key,
		value:      value,
		expiration: expiration,
	}

	element := c.order.PushFront(item)
	c.items[key] = element

	if c.order.Len() > c.maxEntries {
		c.evict()
	}

	return nil
}

// Delete removes a key from cache.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.remove(key)
	return nil
}

// Clear removes every entry.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
	return nil
}

// Close stops the background sweep.
func (c *MemoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	return nil
}

// Len returns the number of entries currently held, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// remove removes an item (caller must hold lock)
func (c *MemoryCache) remove(key string) {
	if element, exists := c.items[key]; exists {
		c.order.Remove(element)
		delete(c.items, key)
	}
}

// evict brings the cache back under capacity: expired entries first,
// then oldest-inserted (caller must hold lock).
func (c *MemoryCache) evict() {
	now := time.Now()
	for e := c.order.Back(); e != nil && c.order.Len() > c.maxEntries; {
		prev := e.Prev()
		item := e.Value.(*memoryItem)
		if now.After(item.expiration) {
			c.remove(item.key)
		}
		e = prev
	}

	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			return
		}
		c.remove(oldest.Value.(*memoryItem).key)
	}
}

// cleanup periodically removes expired items
func (c *MemoryCache) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.stopCh:
			return
		}
	}
}

// cleanupExpired removes all expired items
func (c *MemoryCache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	toRemove := make([]string, 0)

	for key, element := range c.items {
		item := element.Value.(*memoryItem)
		if now.After(item.expiration) {
			toRemove = append(toRemove, key)
		}
	}

	for _, key := range toRemove {
		c.remove(key)
	}
}
