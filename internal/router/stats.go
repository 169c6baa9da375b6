package router

import "sync"

// SourceStats holds monotonically increasing outcome counts for one source.
type SourceStats struct {
	Success int64
	Failure int64
}

// Stats is the outcome-count registry shared between routers. Counts only
// ever increase; Reset exists for tests. The registry is observational: it
// never influences provider trial order.
type Stats struct {
	mu      sync.Mutex
	sources map[string]SourceStats
}

// NewStats creates an empty registry.
func NewStats() *Stats {
	return &Stats{sources: make(map[string]SourceStats)}
}

func (s *Stats) record(source string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.sources[source]
	if success {
		c.Success++
	} else {
		c.Failure++
	}
	s.sources[source] = c
}

// Source returns the counts for one source.
func (s *Stats) Source(name string) SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sources[name]
}

// Snapshot returns a copy of every source's counts.
func (s *Stats) Snapshot() map[string]SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]SourceStats, len(s.sources))
	for name, c := range s.sources {
		out[name] = c
	}
	return out
}

// Reset discards all counts. Test hook.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = make(map[string]SourceStats)
}
