// Package provider holds the source registries and the construction
// contract shared by every concrete data source adapter.
package provider

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/caifeng/marketone/internal/platform/cache"
	"github.com/caifeng/marketone/internal/platform/httpx"
	"github.com/caifeng/marketone/internal/platform/observability"
	"github.com/caifeng/marketone/internal/router"
)

// ErrUnknownSource is returned when a source name has no registered
// constructor.
var ErrUnknownSource = errors.New("provider: unknown source")

// Deps carries the shared infrastructure every provider needs.
type Deps struct {
	Store  *cache.Store
	Client *httpx.Client
	Logger *observability.Logger
}

// Ctor builds a provider handle for one source. Construction validates the
// parameters and binds them into the handle's operation table; construction
// failures are recoverable at the factory level.
type Ctor[P any] func(deps Deps, params P) (router.Handle, error)

// Registry maps source names to constructors for one data domain.
// Registration happens at package init; lookups are concurrency-safe.
type Registry[P any] struct {
	domain string
	mu     sync.RWMutex
	ctors  map[string]Ctor[P]
}

// NewRegistry creates an empty registry for the named domain.
func NewRegistry[P any](domain string) *Registry[P] {
	return &Registry[P]{
		domain: domain,
		ctors:  make(map[string]Ctor[P]),
	}
}

// Register adds a constructor for a source name, replacing any previous one.
// It allows extending a domain with custom sources at runtime.
func (r *Registry[P]) Register(name string, ctor Ctor[P]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[name] = ctor
}

// New constructs the handle for a source.
func (r *Registry[P]) New(name string, deps Deps, params P) (router.Handle, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q for domain %s (available: %v)",
			ErrUnknownSource, name, r.domain, r.Sources())
	}

	return ctor(deps, params)
}

// Sources lists the registered source names, sorted.
func (r *Registry[P]) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a source is registered.
func (r *Registry[P]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ctors[name]
	return ok
}

// Domain returns the registry's domain name.
func (r *Registry[P]) Domain() string {
	return r.domain
}
