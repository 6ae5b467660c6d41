package policy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScheduleMonotone(t *testing.T) {
	s := Schedule{Start: 0.9, End: 0.05, Decay: 500}
	require.NoError(t, s.Validate())
	require.Equal(t, 0.9, s.At(0))

	prev := s.At(0)
	for steps := 1; steps < 20000; steps += 37 {
		eps := s.At(steps)
		require.LessOrEqual(t, eps, prev)
		require.GreaterOrEqual(t, eps, s.End)
		prev = eps
	}
	require.InDelta(t, 0.05, s.At(100000), 1e-12)
	require.InDelta(t, 0.05+0.85*math.Exp(-1), s.At(500), 1e-12)
}

func TestScheduleValidate(t *testing.T) {
	require.Error(t, Schedule{Start: 0.1, End: 0.5, Decay: 1}.Validate())
	require.Error(t, Schedule{Start: 1.5, End: 0.5, Decay: 1}.Validate())
	require.Error(t, Schedule{Start: 0.9, End: 0.05, Decay: 0}.Validate())
}

func TestGreedyFirstMax(t *testing.T) {
	require.Equal(t, 2, Greedy([]float64{0, 1, 3, 3, 2}))
	require.Equal(t, 0, Greedy([]float64{5, 5, 5}))
	require.Equal(t, 1, Greedy([]float64{-1, -0.5, -2}))
}

func TestEGreedyBounds(t *testing.T) {
	e, err := NewEGreedy(4, 11)
	require.NoError(t, err)

	values := []float64{0.1, 0.2, 0.9, 0.3}
	counts := make([]int, 4)
	for i := 0; i < 10000; i++ {
		a, err := e.SelectAction(values, 0.5)
		require.NoError(t, err)
		require.GreaterOrEqual(t, a, 0)
		require.Less(t, a, 4)
		counts[a]++
	}

	// Greedy half plus a quarter of the random half
	require.InDelta(t, 6250, counts[2], 300)
	for _, a := range []int{0, 1, 3} {
		require.InDelta(t, 1250, counts[a], 200)
	}

	_, err = e.SelectAction([]float64{1}, 0.5)
	require.Error(t, err)
}

func TestEGreedyNeverExploresAtZero(t *testing.T) {
	e, err := NewEGreedy(3, 1)
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		_, ok := e.Explore(0)
		require.False(t, ok)
	}

	_, err = NewEGreedy(0, 1)
	require.Error(t, err)
}
