// Package expreplay implements a fixed capacity experience replay
// buffer of timestep.Transitions.
//
// The buffer is a ring: once it has been filled, each new transition
// overwrites the oldest transition still stored. Sampling is delegated
// to a Selector, which by default draws a batch uniformly at random
// without replacement.
package expreplay

import (
	"fmt"

	"github.com/pixelrl/pixeldqn/timestep"
)

// Config implements a specific configuration of an experience replay
// buffer
type Config struct {
	SampleMethod SelectorType `json:"sample_method"`
	Capacity     int          `json:"capacity"`
}

// Create creates and returns the Memory described by the Config.
func (c Config) Create(seed uint64) (*Memory, error) {
	sampler, err := CreateSelector(c.SampleMethod, seed)
	if err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}
	return NewWithSelector(c.Capacity, sampler)
}

// Memory is a fixed capacity circular buffer of Transitions.
//
// A Memory is owned by a single goroutine. Use NewSynchronized when
// multiple goroutines push into the same buffer.
type Memory struct {
	buffer   []timestep.Transition
	cursor   int // next insertion index
	capacity int

	sampler Selector
}

// New returns a new Memory that holds at most capacity transitions
// and samples uniformly at random.
func New(capacity int, seed uint64) (*Memory, error) {
	return NewWithSelector(capacity, NewUniformSelector(seed))
}

// NewWithSelector returns a new Memory that holds at most capacity
// transitions and samples them using sampler.
func NewWithSelector(capacity int, sampler Selector) (*Memory, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("new: capacity must be > 0\n\thave(%v)",
			capacity)
	}
	if sampler == nil {
		return nil, fmt.Errorf("new: sampler must be non-nil")
	}

	return &Memory{
		buffer:   make([]timestep.Transition, 0, capacity),
		cursor:   0,
		capacity: capacity,
		sampler:  sampler,
	}, nil
}

// Push inserts a transition at the write cursor. While the buffer is
// not full the transition is appended, afterwards it overwrites the
// slot at the cursor, which holds the oldest transition.
func (m *Memory) Push(t timestep.Transition) {
	if len(m.buffer) < m.capacity {
		m.buffer = append(m.buffer, t)
	} else {
		m.buffer[m.cursor] = t
	}
	m.cursor = (m.cursor + 1) % m.capacity
}

// Sample returns k distinct transitions from the buffer. An
// *ExpReplayError wrapping ErrInsufficientSamples is returned if fewer
// than k transitions are stored.
func (m *Memory) Sample(k int) ([]timestep.Transition, error) {
	if k <= 0 {
		return nil, &ExpReplayError{Op: "sample", Err: ErrInvalidBatch}
	}
	if k > m.Len() {
		return nil, &ExpReplayError{
			Op:  "sample",
			Err: fmt.Errorf("%w: want(%v) have(%v)", ErrInsufficientSamples, k, m.Len()),
		}
	}

	indices := m.sampler.choose(m, k)
	batch := make([]timestep.Transition, len(indices))
	for i, index := range indices {
		batch[i] = m.buffer[index]
	}
	return batch, nil
}

// Len returns the current number of transitions in the buffer
func (m *Memory) Len() int {
	return len(m.buffer)
}

// Capacity returns the maximum number of transitions in the buffer
func (m *Memory) Capacity() int {
	return m.capacity
}

// Cursor returns the index at which the next transition is written
func (m *Memory) Cursor() int {
	return m.cursor
}

// insertOrder returns the slots of the buffer from the oldest to the
// most recently written transition
func (m *Memory) insertOrder() []int {
	order := make([]int, 0, len(m.buffer))
	if len(m.buffer) < m.capacity {
		for i := range m.buffer {
			order = append(order, i)
		}
		return order
	}

	for i := m.cursor; i < m.capacity; i++ {
		order = append(order, i)
	}
	for i := 0; i < m.cursor; i++ {
		order = append(order, i)
	}
	return order
}

// Transitions returns the stored transitions from oldest to newest.
// The returned slice is a copy, the transitions themselves are shared.
func (m *Memory) Transitions() []timestep.Transition {
	order := m.insertOrder()
	out := make([]timestep.Transition, len(order))
	for i, index := range order {
		out[i] = m.buffer[index]
	}
	return out
}

// Restore empties the buffer and pushes transitions in order. If more
// than Capacity() transitions are given, only the most recent ones are
// kept.
func (m *Memory) Restore(transitions []timestep.Transition) {
	m.buffer = m.buffer[:0]
	m.cursor = 0
	for _, t := range transitions {
		m.Push(t)
	}
}

// Reset removes all transitions from the buffer
func (m *Memory) Reset() {
	m.Restore(nil)
}

// String returns the string representation of the Memory
func (m *Memory) String() string {
	return fmt.Sprintf("Memory | Len: %v  |  Capacity: %v  |  Cursor: %v",
		m.Len(), m.capacity, m.cursor)
}
