// Package memory provides the decaying associative store used for both
// agent-local memory and the engine's shared global memory.
package memory

import "sync"

// Decay rates in weight units per second.
const (
	LocalDecayRate  = 0.05
	GlobalDecayRate = 0.1
)

// Store maps string keys to weights that shrink over time. An entry is
// forgotten the moment its weight reaches zero or below.
type Store struct {
	rate float64

	mu      sync.RWMutex
	entries map[string]float64
}

// New creates an empty store decaying at rate per second.
func New(rate float64) *Store {
	return &Store{
		rate:    rate,
		entries: make(map[string]float64),
	}
}

// NewLocal creates a store with the per-agent decay rate.
func NewLocal() *Store { return New(LocalDecayRate) }

// NewGlobal creates a store with the shared decay rate.
func NewGlobal() *Store { return New(GlobalDecayRate) }

// Rate returns the decay rate per second.
func (s *Store) Rate() float64 {
	return s.rate
}

// Set inserts or overwrites the weight for key.
func (s *Store) Set(key string, weight float64) {
	s.mu.Lock()
	s.entries[key] = weight
	s.mu.Unlock()
}

// Get returns the weight for key and whether it is present.
func (s *Store) Get(key string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.entries[key]
	return w, ok
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Decay reduces every weight by rate*dt and prunes entries at or below zero.
// Deleting during range is well defined for Go maps, so no entry is skipped.
func (s *Store) Decay(dt float64) {
	if dt == 0 {
		return
	}
	amount := s.rate * dt

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, w := range s.entries {
		w -= amount
		if w <= 0 {
			delete(s.entries, key)
			continue
		}
		s.entries[key] = w
	}
}

// Snapshot returns a copy of all entries.
func (s *Store) Snapshot() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}
