package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pixelrl/pixeldqn/checkpoint"
	"github.com/pixelrl/pixeldqn/environment/envconfig"
	"github.com/pixelrl/pixeldqn/initwfn"
	"github.com/pixelrl/pixeldqn/solver"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	require.Equal(t, 0.99, c.Agent.Gamma)
	require.Equal(t, 0.001, c.Agent.Tau)
	require.Equal(t, 32, c.Agent.BatchSize)
	require.Equal(t, 39000, c.Agent.ExpReplay.Capacity)
	require.Equal(t, solver.RMSProp, c.Agent.Solver.Type)
	require.Equal(t, []int{84, 84, 4}, c.Env.ObservationShape())
	require.Equal(t, envconfig.MovingDot, c.Env.Environment)
	require.Equal(t, 450, c.Experiment.Episodes)
	require.Equal(t, 1000, c.Experiment.MaxSteps)
}

func TestSaveLoad(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.json")

	want := Default()
	want.Seed = 9
	want.Agent.Gamma = 0.9
	want.Experiment.Episodes = 10
	want.Checkpoint.Store = checkpoint.SQLite
	want.Checkpoint.Path = "checkpoints.db"
	require.NoError(t, want.Save(filename))

	got, err := Load(filename)
	require.NoError(t, err)
	require.NoError(t, got.Validate())

	require.Equal(t, want.Seed, got.Seed)
	require.Equal(t, want.Agent.Gamma, got.Agent.Gamma)
	require.Equal(t, want.Agent.Epsilon, got.Agent.Epsilon)
	require.Equal(t, want.Agent.Solver.Type, got.Agent.Solver.Type)
	require.Equal(t, want.Agent.Solver.Config, got.Agent.Solver.Config)
	require.NotNil(t, got.Agent.Solver.Solver)
	require.Equal(t, initwfn.HeN, got.Agent.Network.InitWFn.Type)
	require.Equal(t, want.Agent.Network.Filters, got.Agent.Network.Filters)
	require.Equal(t, want.Env, got.Env)
	require.Equal(t, want.Experiment, got.Experiment)
	require.Equal(t, want.Checkpoint, got.Checkpoint)
}

func TestLoadPartial(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.json")
	data := `{"experiment": {"episodes": 12}, "agent": {"Gamma": 0.5}}`
	require.NoError(t, os.WriteFile(filename, []byte(data), 0o644))

	c, err := Load(filename)
	require.NoError(t, err)
	require.Equal(t, 12, c.Experiment.Episodes)
	require.Equal(t, 0.5, c.Agent.Gamma)

	d := Default()
	require.Equal(t, d.Experiment.MaxSteps, c.Experiment.MaxSteps)
	require.Equal(t, d.Agent.BatchSize, c.Agent.BatchSize)
	require.NoError(t, c.Validate())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = Load(bad)
	require.Error(t, err)

	unknown := filepath.Join(dir, "unknown.json")
	data := `{"agent": {"Solver": {"Type": "SGD", "Config": {}}}}`
	require.NoError(t, os.WriteFile(unknown, []byte(data), 0o644))
	_, err = Load(unknown)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	c := Default()
	c.Env.FrameHeight = 10
	c.Env.FrameWidth = 10
	require.Error(t, c.Validate())

	c = Default()
	c.Checkpoint.Store = "postgres"
	require.Error(t, c.Validate())

	c = Default()
	c.Checkpoint.Path = ""
	require.Error(t, c.Validate())

	c = Default()
	c.Checkpoint.Store = checkpoint.Memory
	c.Checkpoint.Path = ""
	require.NoError(t, c.Validate())

	c = Default()
	c.Experiment.TrainPeriod = 0
	require.Error(t, c.Validate())
}
