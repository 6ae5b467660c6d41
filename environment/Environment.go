// Package environment outlines the interfaces and structs needed to
// implement concrete pixel environments
package environment

import (
	ts "github.com/pixelrl/pixeldqn/timestep"
)

// Environment implements a simulated environment with discrete
// actions numbered from 0.
//
// Raw environments return rendered frames in TimeStep.Frame with
// ObservationShape [height, width, 3]. Wrappers may instead fill in
// TimeStep.Observation, in which case ObservationShape is the shape of
// that tensor.
type Environment interface {
	Reset() (ts.TimeStep, error) // Resets between episodes
	Step(action int) (ts.TimeStep, bool, error)
	NumActions() int
	ObservationShape() []int
	Close() error
}

// Ender determines when episodes should be ended
type Ender interface {
	End(*ts.TimeStep) bool
}
