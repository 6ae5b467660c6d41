//go:build !gym
// +build !gym

// Package gym provides access to OpenAI Gym Atari environments through
// the GoGym bindings. Without the gym build tag, New always fails.
package gym

import (
	"errors"
	"fmt"

	ts "github.com/pixelrl/pixeldqn/timestep"
)

// Available reports whether the package was built with GoGym support
const Available = false

// ErrUnavailable is returned by New when built without the gym tag
var ErrUnavailable = errors.New("gym support not compiled in " +
	"(build with -tags gym)")

// GymEnv is a placeholder for the GoGym environment wrapper
type GymEnv struct{}

// New returns ErrUnavailable
func New(name string, height, width int, seed uint64) (*GymEnv, error) {
	return nil, fmt.Errorf("new: %v: %w", name, ErrUnavailable)
}

func (g *GymEnv) Reset() (ts.TimeStep, error) {
	return ts.TimeStep{}, ErrUnavailable
}

func (g *GymEnv) Step(int) (ts.TimeStep, bool, error) {
	return ts.TimeStep{}, true, ErrUnavailable
}

func (g *GymEnv) NumActions() int { return 0 }

func (g *GymEnv) ObservationShape() []int { return nil }

func (g *GymEnv) Close() error { return nil }

// Shutdown is a no-op without GoGym
func Shutdown() {}
