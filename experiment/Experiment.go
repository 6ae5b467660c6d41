// Package experiment implements functionality for running an experiment
package experiment

import (
	"context"
	"fmt"

	"github.com/pixelrl/pixeldqn/experiment/tracker"
)

// Interface Experiment outlines structs that can run experiments.
// The Run() method runs all episodes until the episode limit is
// reached or the context is cancelled. The RunEpisode() method runs a
// single episode and returns its Record.
//
// Experiments send the Record of each finished episode to Trackers,
// which determine what data is kept and saved. New Trackers can be
// registered with an Experiment through the constructor or through an
// Experiment's Register() method. The Save() method saves all tracked
// data to disk, and is usually called after the experiment has run.
type Experiment interface {
	Run(ctx context.Context) error
	RunEpisode(ctx context.Context) (tracker.Record, error)

	// Adds a new tracker.Tracker to the (possibly already running)
	// experiment
	Register(t tracker.Tracker)

	// Save all tracked data to disk
	Save() error
}

// Config represents a configuration of an experiment
type Config struct {
	// Number of episodes to train for
	Episodes int `json:"episodes"`

	// Steps after which an episode is cut off, 0 for no limit
	MaxSteps int `json:"max_steps"`

	// The agent is trained every TrainPeriod steps of an episode
	TrainPeriod int `json:"train_period"`

	// The target network is soft updated every TargetUpdatePeriod
	// training calls, 0 to never update it
	TargetUpdatePeriod int `json:"target_update_period"`

	// Episodes between printed records, 0 to never print
	LogInterval int `json:"log_interval"`

	// Episodes between checkpoints, 0 to only checkpoint at the end.
	// Checkpointers built from the configuration use this interval.
	SaveInterval int `json:"save_interval"`
}

// DefaultConfig returns the default experiment configuration
func DefaultConfig() Config {
	return Config{
		Episodes:           450,
		MaxSteps:           1000,
		TrainPeriod:        4,
		TargetUpdatePeriod: 1,
		LogInterval:        5,
		SaveInterval:       200,
	}
}

// Validate returns an error if the configuration is invalid
func (c Config) Validate() error {
	if c.Episodes <= 0 {
		return fmt.Errorf("validate: episodes must be > 0\n\thave(%v)",
			c.Episodes)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("validate: max steps must be >= 0\n\thave(%v)",
			c.MaxSteps)
	}
	if c.TrainPeriod <= 0 {
		return fmt.Errorf("validate: train period must be > 0\n\thave(%v)",
			c.TrainPeriod)
	}
	if c.TargetUpdatePeriod < 0 {
		return fmt.Errorf("validate: target update period must be >= 0"+
			"\n\thave(%v)", c.TargetUpdatePeriod)
	}
	if c.LogInterval < 0 || c.SaveInterval < 0 {
		return fmt.Errorf("validate: intervals must be >= 0\n\thave(log: %v, "+
			"save: %v)", c.LogInterval, c.SaveInterval)
	}
	return nil
}
