package envconfig

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestCreateMovingDot(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	env, err := c.Create(1)
	require.NoError(t, err)
	defer env.Close()

	require.Equal(t, []int{84, 84, 4}, env.ObservationShape())
	require.Equal(t, c.ObservationShape(), env.ObservationShape())
	require.Equal(t, 4, env.NumActions())

	step, err := env.Reset()
	require.NoError(t, err)
	require.Equal(t, tensor.Shape{84, 84, 4}, step.Observation.Shape())
}

func TestValidate(t *testing.T) {
	c := Default()
	c.Environment = "Breakout"
	require.Error(t, c.Validate())

	c = Default()
	c.Environment = Gym
	c.GymID = ""
	require.Error(t, c.Validate())

	c = Default()
	c.StackDepth = 0
	require.Error(t, c.Validate())
}

func TestConfigJSON(t *testing.T) {
	data := []byte(`{"Environment": "MovingDot", "EpisodeCutoff": 50,
		"RawHeight": 105, "RawWidth": 80, "FrameHeight": 42,
		"FrameWidth": 42, "StackDepth": 2}`)

	var c Config
	require.NoError(t, json.Unmarshal(data, &c))
	require.NoError(t, c.Validate())
	require.Equal(t, []int{42, 42, 2}, c.ObservationShape())
}
