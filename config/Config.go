// Package config implements the JSON configuration of a training run:
// the agent, the environment, the experiment, and where checkpoints
// and episode records are kept.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pixelrl/pixeldqn/agent/deepq"
	"github.com/pixelrl/pixeldqn/checkpoint"
	"github.com/pixelrl/pixeldqn/environment/envconfig"
	"github.com/pixelrl/pixeldqn/experiment"
)

// Checkpoint configures where checkpoints are stored. Path is a
// directory for file stores and a database file for sqlite stores.
type Checkpoint struct {
	Store checkpoint.Kind `json:"store"`
	Path  string          `json:"path"`
}

// Config is the configuration of a training run
type Config struct {
	Seed       uint64            `json:"seed"`
	Agent      deepq.Config      `json:"agent"`
	Env        envconfig.Config  `json:"env"`
	Experiment experiment.Config `json:"experiment"`
	Checkpoint Checkpoint        `json:"checkpoint"`

	// Directory in which episode records and reports are written
	OutputDir string `json:"output_dir"`
}

// Default returns the default configuration: a DeepQ agent trained on
// the moving dot task for 450 episodes with 84x84x4 observations
func Default() Config {
	return Config{
		Seed:       0,
		Agent:      deepq.DefaultConfig(0),
		Env:        envconfig.Default(),
		Experiment: experiment.DefaultConfig(),
		Checkpoint: Checkpoint{
			Store: checkpoint.File,
			Path:  "models",
		},
		OutputDir: "runs",
	}
}

// Load loads a configuration from a JSON file. Fields missing from the
// file keep their Default values.
func Load(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("load: %v", err)
	}

	c := Default()
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("load: could not decode %v: %v",
			filename, err)
	}
	return c, nil
}

// Save saves the configuration to a JSON file
func (c Config) Save(filename string) error {
	data, err := json.MarshalIndent(c, "", "\t")
	if err != nil {
		return fmt.Errorf("save: %v", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("save: %v", err)
	}
	return nil
}

// Validate returns an error if any part of the configuration is
// invalid or if the agent's network cannot process the environment's
// observations
func (c Config) Validate() error {
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("validate: agent: %v", err)
	}
	if err := c.Env.Validate(); err != nil {
		return fmt.Errorf("validate: env: %v", err)
	}
	if err := c.Experiment.Validate(); err != nil {
		return fmt.Errorf("validate: experiment: %v", err)
	}
	if err := c.Agent.Network.Validate(c.Env.ObservationShape()); err != nil {
		return fmt.Errorf("validate: network: %v", err)
	}

	switch c.Checkpoint.Store {
	case checkpoint.Memory:
	case checkpoint.File, checkpoint.SQLite:
		if c.Checkpoint.Path == "" {
			return fmt.Errorf("validate: %v checkpoint store needs a path",
				c.Checkpoint.Store)
		}
	default:
		return fmt.Errorf("validate: no such checkpoint store %v",
			c.Checkpoint.Store)
	}

	return nil
}
