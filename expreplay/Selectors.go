package expreplay

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// SelectorType describes the method a Selector uses to choose data
// from a buffer
type SelectorType string

const (
	Uniform SelectorType = "Uniform"
	Fifo    SelectorType = "Fifo"
)

// Selector implements functionality for choosing which data should be
// sampled from an experience replay buffer
type Selector interface {
	// choose selects k distinct slots of m at which data should be
	// sampled. The caller guarantees 0 < k <= m.Len().
	choose(m *Memory, k int) []int
}

// CreateSelector is a factory for Selectors
func CreateSelector(t SelectorType, seed uint64) (Selector, error) {
	switch t {
	case Uniform, "":
		return NewUniformSelector(seed), nil
	case Fifo:
		return NewFifoSelector(), nil
	}
	return nil, fmt.Errorf("createSelector: no such selector type %v", t)
}

// uniformSelector is a Selector which selects data from an experience
// replay buffer uniformly randomly without replacement
type uniformSelector struct {
	rng *rand.Rand
}

// NewUniformSelector returns a new Selector which selects data uniformly
// randomly, without replacement, from an experience replay buffer
func NewUniformSelector(seed uint64) Selector {
	source := rand.NewSource(seed)
	rng := rand.New(source)

	return &uniformSelector{rng: rng}
}

// choose runs a partial Fisher-Yates shuffle over the filled slots so
// that each subset of size k is equally likely
func (u *uniformSelector) choose(m *Memory, k int) []int {
	n := m.Len()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	for i := 0; i < k; i++ {
		j := i + u.rng.Intn(n-i)
		indices[i], indices[j] = indices[j], indices[i]
	}

	return indices[:k]
}

// fifoSelector is a Selector which selects the oldest data from an
// experience replay buffer first.
type fifoSelector struct{}

// NewFifoSelector returns a new Selector which draws data from an
// experience replay buffer in as FiFo.
func NewFifoSelector() Selector {
	return fifoSelector{}
}

// choose selects the k oldest slots in the buffer
func (f fifoSelector) choose(m *Memory, k int) []int {
	return m.insertOrder()[:k]
}
