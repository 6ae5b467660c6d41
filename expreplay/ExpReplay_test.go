package expreplay

import (
	"errors"
	"sync"
	"testing"

	"github.com/pixelrl/pixeldqn/timestep"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

// transition returns a transition whose reward identifies it
func transition(i int) timestep.Transition {
	state := tensor.New(tensor.WithShape(2, 2, 1),
		tensor.WithBacking([]float64{float64(i), 0, 0, 0}))
	next := tensor.New(tensor.WithShape(2, 2, 1),
		tensor.WithBacking([]float64{float64(i + 1), 0, 0, 0}))
	return timestep.Transition{
		State:     state,
		Action:    i % 3,
		Reward:    float64(i),
		NextState: next,
		Done:      i%5 == 4,
	}
}

func rewards(ts []timestep.Transition) []float64 {
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = t.Reward
	}
	return out
}

func TestNewInvalidCapacity(t *testing.T) {
	_, err := New(0, 1)
	require.Error(t, err)

	_, err = New(-3, 1)
	require.Error(t, err)
}

func TestPushBeforeFull(t *testing.T) {
	m, err := New(5, 1)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		m.Push(transition(i))
	}
	require.Equal(t, 3, m.Len())
	require.Equal(t, 3, m.Cursor())
	require.Equal(t, []float64{0, 1, 2}, rewards(m.Transitions()))
}

func TestRingBufferOverwritesOldest(t *testing.T) {
	const capacity = 10
	for _, extra := range []int{1, 3, 10, 17} {
		m, err := New(capacity, 7)
		require.NoError(t, err)

		total := capacity + extra
		for i := 0; i < total; i++ {
			m.Push(transition(i))
		}

		require.Equal(t, capacity, m.Len())
		require.Equal(t, total%capacity, m.Cursor())

		want := make([]float64, 0, capacity)
		for i := total - capacity; i < total; i++ {
			want = append(want, float64(i))
		}
		require.Equal(t, want, rewards(m.Transitions()), "extra=%d", extra)
	}
}

func TestSampleDistinctFromContents(t *testing.T) {
	m, err := New(20, 42)
	require.NoError(t, err)
	for i := 0; i < 35; i++ {
		m.Push(transition(i))
	}

	stored := map[float64]bool{}
	for _, r := range rewards(m.Transitions()) {
		stored[r] = true
	}

	for trial := 0; trial < 200; trial++ {
		for _, k := range []int{1, 7, 20} {
			batch, err := m.Sample(k)
			require.NoError(t, err)
			require.Len(t, batch, k)

			seen := map[float64]bool{}
			for _, tr := range batch {
				require.True(t, stored[tr.Reward], "fabricated transition %v", tr)
				require.False(t, seen[tr.Reward], "duplicate transition %v", tr)
				seen[tr.Reward] = true
			}
		}
	}
}

func TestSampleCoversBuffer(t *testing.T) {
	m, err := New(8, 3)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		m.Push(transition(i))
	}

	counts := make(map[float64]int)
	for trial := 0; trial < 2000; trial++ {
		batch, err := m.Sample(2)
		require.NoError(t, err)
		for _, tr := range batch {
			counts[tr.Reward]++
		}
	}

	// Each slot is expected 500 times
	require.Len(t, counts, 8)
	for r, c := range counts {
		require.InDelta(t, 500, c, 150, "reward %v", r)
	}
}

func TestSampleInsufficient(t *testing.T) {
	m, err := New(10, 1)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		m.Push(transition(i))
	}

	_, err = m.Sample(4)
	require.Error(t, err)
	require.True(t, IsInsufficientSamples(err))
	require.True(t, errors.Is(err, ErrInsufficientSamples))

	var replayErr *ExpReplayError
	require.True(t, errors.As(err, &replayErr))
	require.Equal(t, "sample", replayErr.Op)

	_, err = m.Sample(0)
	require.Error(t, err)
	require.False(t, IsInsufficientSamples(err))
}

func TestFifoSelector(t *testing.T) {
	m, err := Config{SampleMethod: Fifo, Capacity: 4}.Create(0)
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		m.Push(transition(i))
	}

	batch, err := m.Sample(3)
	require.NoError(t, err)
	require.Equal(t, []float64{2, 3, 4}, rewards(batch))
}

func TestRestoreKeepsMostRecent(t *testing.T) {
	m, err := New(3, 1)
	require.NoError(t, err)
	m.Push(transition(100))

	in := []timestep.Transition{transition(0), transition(1),
		transition(2), transition(3), transition(4)}
	m.Restore(in)

	require.Equal(t, 3, m.Len())
	require.Equal(t, []float64{2, 3, 4}, rewards(m.Transitions()))

	m.Reset()
	require.Equal(t, 0, m.Len())
}

func TestSynchronizedConcurrentPush(t *testing.T) {
	m, err := New(64, 1)
	require.NoError(t, err)
	s := NewSynchronized(m)

	errs := make(chan error, 4*50)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Push(transition(w*50 + i))
				if s.Len() >= 8 {
					if _, err := s.Sample(8); err != nil {
						errs <- err
					}
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, 64, s.Len())
	require.Len(t, s.Transitions(), 64)
}
