package movingdot

import (
	"testing"

	ts "github.com/pixelrl/pixeldqn/timestep"
	"github.com/stretchr/testify/require"
)

func newEnv(t *testing.T, c Config) *MovingDot {
	m, err := New(c, 3)
	require.NoError(t, err)
	_, err = m.Reset()
	require.NoError(t, err)
	return m
}

func brightness(m *MovingDot, x, y int) uint32 {
	r, _, _, _ := m.CurrentTimeStep().Frame.At(x, y).RGBA()
	return r
}

func TestNewInvalid(t *testing.T) {
	c := DefaultConfig()
	c.DotSize = 0
	_, err := New(c, 1)
	require.Error(t, err)

	c = DefaultConfig()
	c.Speed = -1
	_, err = New(c, 1)
	require.Error(t, err)
}

func TestResetRendersDot(t *testing.T) {
	m := newEnv(t, DefaultConfig())
	step := m.CurrentTimeStep()

	require.True(t, step.First())
	require.Equal(t, 0, step.Number)
	require.Equal(t, []int{210, 160, 3}, m.ObservationShape())
	require.Equal(t, 160, step.Frame.Bounds().Dx())
	require.Equal(t, 210, step.Frame.Bounds().Dy())
	require.False(t, m.AtGoal())

	x, y := m.Position()
	require.Greater(t, brightness(m, x+1, y+1), uint32(0))

	// The opposite corner of the screen is far from a 4 pixel dot
	fx, fy := 159-x, 209-y
	if abs(fx-x) > 8 || abs(fy-y) > 8 {
		require.Equal(t, uint32(0), brightness(m, fx, fy))
	}
}

func TestStepRewards(t *testing.T) {
	m := newEnv(t, DefaultConfig())
	cx, cy := m.centre()

	m.x, m.y = cx-10, cy
	step, done, err := m.Step(Right)
	require.NoError(t, err)
	require.False(t, done)
	require.Equal(t, 1.0, step.Reward)
	require.True(t, step.Mid())
	require.Equal(t, 1, step.Number)

	step, _, err = m.Step(Left)
	require.NoError(t, err)
	require.Equal(t, -1.0, step.Reward)

	// Blocked by the edge of the screen
	m.x, m.y = 0, cy
	step, _, err = m.Step(Left)
	require.NoError(t, err)
	require.Equal(t, 0.0, step.Reward)
	x, _ := m.Position()
	require.Equal(t, 0, x)

	_, _, err = m.Step(4)
	require.Error(t, err)
}

func TestEpisodeEndsAtCentre(t *testing.T) {
	m := newEnv(t, DefaultConfig())
	cx, cy := m.centre()

	m.x, m.y = cx, cy+m.Speed
	step, done, err := m.Step(Up)
	require.NoError(t, err)
	require.True(t, done)
	require.True(t, step.Last())
	require.Equal(t, 1.0, step.Reward)
}

func TestEpisodeEndsAtStepLimit(t *testing.T) {
	c := DefaultConfig()
	c.MaxSteps = 3
	m := newEnv(t, c)
	cx, cy := m.centre()
	m.x, m.y = cx-20, cy

	var step ts.TimeStep
	var done bool
	var err error
	for i := 0; i < 3; i++ {
		require.False(t, done)
		step, done, err = m.Step(Up)
		require.NoError(t, err)
	}
	require.True(t, done)
	require.True(t, step.Last())
	require.Equal(t, 3, step.Number)
}

func TestResetOnReachableGrid(t *testing.T) {
	c := DefaultConfig()
	c.Speed = 3
	m, err := New(c, 9)
	require.NoError(t, err)
	cx, cy := m.centre()

	for i := 0; i < 100; i++ {
		_, err := m.Reset()
		require.NoError(t, err)
		x, y := m.Position()
		require.Equal(t, 0, abs(x-cx)%3)
		require.Equal(t, 0, abs(y-cy)%3)
		require.GreaterOrEqual(t, x, 0)
		require.LessOrEqual(t, x, 156)
		require.LessOrEqual(t, y, 206)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
