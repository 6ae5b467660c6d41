package expreplay

import (
	"sync"

	"github.com/pixelrl/pixeldqn/timestep"
)

// Synchronized guards a Memory with a single lock so that transitions
// may be pushed from several goroutines, for example when environments
// are stepped in parallel. Sample holds the write lock since it
// advances the sampler's RNG.
type Synchronized struct {
	mu sync.RWMutex
	m  *Memory
}

// NewSynchronized returns a Synchronized that guards m. The caller must
// not use m directly afterwards.
func NewSynchronized(m *Memory) *Synchronized {
	return &Synchronized{m: m}
}

// Push inserts a transition into the guarded Memory
func (s *Synchronized) Push(t timestep.Transition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m.Push(t)
}

// Sample returns k distinct transitions from the guarded Memory
func (s *Synchronized) Sample(k int) ([]timestep.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Sample(k)
}

// Len returns the number of transitions in the guarded Memory
func (s *Synchronized) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m.Len()
}

// Transitions returns a snapshot of the guarded Memory's contents
// from oldest to newest
func (s *Synchronized) Transitions() []timestep.Transition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m.Transitions()
}
