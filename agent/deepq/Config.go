package deepq

import (
	"fmt"

	"github.com/pixelrl/pixeldqn/agent/policy"
	"github.com/pixelrl/pixeldqn/expreplay"
	"github.com/pixelrl/pixeldqn/network"
	"github.com/pixelrl/pixeldqn/solver"
)

// Config implements a configuration for a DeepQ agent
type Config struct {
	Gamma float64 // Discount factor
	Tau   float64 // Polyak averaging constant used by SoftUpdate

	// Exploration rate as a function of the number of actions chosen
	Epsilon policy.Schedule

	BatchSize int
	ExpReplay expreplay.Config

	Solver  *solver.Solver     // Solver for learning weights
	Network network.ConvConfig // Topology of online and target networks

	// MaskTerminalBootstrap zeroes the bootstrapped next state value of
	// transitions that ended an episode. When false, the update target
	// is r + γ max Q(s', a') even if s' is terminal.
	MaskTerminalBootstrap bool

	// InitTargetFromOnline starts the target network with the weights
	// of the online network. When false, both are initialized
	// independently and are linked only through SoftUpdate.
	InitTargetFromOnline bool
}

// DefaultConfig returns the configuration used to train on Atari-like
// pixel environments.
func DefaultConfig(seed uint64) Config {
	rmsprop, err := solver.NewRMSProp(6.25e-5, 1e-8, 0.99, 1, -1)
	if err != nil {
		panic(fmt.Sprintf("defaultconfig: %v", err))
	}

	return Config{
		Gamma:     0.99,
		Tau:       0.001,
		Epsilon:   policy.Schedule{Start: 0.9, End: 0.05, Decay: 500},
		BatchSize: 32,
		ExpReplay: expreplay.Config{
			SampleMethod: expreplay.Uniform,
			Capacity:     39000,
		},
		Solver:  rmsprop,
		Network: network.DefaultConvConfig(seed),
	}
}

// Validate checks a Config to ensure it is a valid configuration of a
// DeepQ agent.
func (c Config) Validate() error {
	if c.Gamma <= 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: discount must be in (0, 1]"+
			"\n\thave(%v)", c.Gamma)
	}

	if c.Tau <= 0 || c.Tau > 1 {
		return fmt.Errorf("validate: tau must be in (0, 1]\n\thave(%v)",
			c.Tau)
	}

	if err := c.Epsilon.Validate(); err != nil {
		return fmt.Errorf("validate: epsilon: %v", err)
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("validate: batch size must be positive"+
			"\n\thave(%v)", c.BatchSize)
	}

	if c.ExpReplay.Capacity < c.BatchSize {
		return fmt.Errorf("validate: replay capacity must hold at least "+
			"one batch\n\twant(>=%v)\n\thave(%v)", c.BatchSize,
			c.ExpReplay.Capacity)
	}

	if c.Solver == nil || c.Solver.Config == nil {
		return fmt.Errorf("validate: solver must be set")
	}
	if err := c.Solver.Validate(); err != nil {
		return fmt.Errorf("validate: solver: %v", err)
	}

	return nil
}
