//go:build gym
// +build gym

// Package gym provides access to OpenAI Gym Atari environments through
// the GoGym bindings, found at https://github.com/samuelfneumann/GoGym.
//
// Observations are returned as rendered RGB frames so that they can be
// preprocessed like any other pixel environment. The package is only
// built with the gym build tag since GoGym links against Python.
package gym

import (
	"fmt"
	"image"
	"image/color"
	"math"

	ts "github.com/pixelrl/pixeldqn/timestep"
	"github.com/samuelfneumann/gogym"
	"gonum.org/v1/gonum/mat"
)

// Available reports whether the package was built with GoGym support
const Available = true

// GymEnv implements access to an OpenAI Gym environment using GoGym
type GymEnv struct {
	gogym.Environment

	height, width int
	numActions    int
	currentStep   ts.TimeStep
}

// New returns a new GymEnv with the given name, which must be a legal
// name of an Atari environment from the OpenAI Gym suite whose
// observations are frames of size height x width x 3.
func New(name string, height, width int, seed uint64) (*GymEnv, error) {
	goGymEnv, err := gogym.Make(name)
	if err != nil {
		return nil, fmt.Errorf("new: could not create environment: %v", err)
	}
	goGymEnv.Seed(int(seed))

	high := goGymEnv.ActionSpace().High()
	if len(high) != 1 || high[0].Len() != 1 {
		goGymEnv.Close()
		return nil, fmt.Errorf("new: environment %v must have discrete "+
			"one-dimensional actions", name)
	}

	return &GymEnv{
		Environment: goGymEnv,
		height:      height,
		width:       width,
		numActions:  int(high[0].AtVec(0)) + 1,
	}, nil
}

// Reset resets the environment to some starting state
func (g *GymEnv) Reset() (ts.TimeStep, error) {
	obs, err := g.Environment.Reset()
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: could not reset "+
			"environment: %v", err)
	}

	frame, err := g.frame(obs)
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %v", err)
	}

	g.currentStep = ts.New(ts.First, 0, frame, 0)
	return g.currentStep, nil
}

// Step takes a single environmental step
func (g *GymEnv) Step(action int) (ts.TimeStep, bool, error) {
	a := mat.NewVecDense(1, []float64{float64(action)})
	obs, reward, done, err := g.Environment.Step(a)
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: could not step "+
			"GoGym environment: %v", err)
	}

	frame, err := g.frame(obs)
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: %v", err)
	}

	t := ts.New(ts.Mid, reward, frame, g.currentStep.Number+1)
	if done {
		t.StepType = ts.Last
	}
	g.currentStep = t

	return t, done, nil
}

// frame converts a flattened height x width x 3 observation to an image
func (g *GymEnv) frame(obs *mat.VecDense) (image.Image, error) {
	if obs.Len() != g.height*g.width*3 {
		return nil, fmt.Errorf("observation of size %v is not a %vx%vx3 "+
			"frame", obs.Len(), g.height, g.width)
	}

	img := image.NewRGBA(image.Rect(0, 0, g.width, g.height))
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			i := (y*g.width + x) * 3
			img.SetRGBA(x, y, color.RGBA{
				R: channel(obs.AtVec(i)),
				G: channel(obs.AtVec(i + 1)),
				B: channel(obs.AtVec(i + 2)),
				A: math.MaxUint8,
			})
		}
	}
	return img, nil
}

func channel(v float64) uint8 {
	return uint8(math.Max(0, math.Min(math.MaxUint8, math.Round(v))))
}

// NumActions returns the number of discrete actions
func (g *GymEnv) NumActions() int {
	return g.numActions
}

// ObservationShape returns the shape of the rendered frames
func (g *GymEnv) ObservationShape() []int {
	return []int{g.height, g.width, 3}
}

// CurrentTimeStep returns the current timestep in the environment
func (g *GymEnv) CurrentTimeStep() ts.TimeStep {
	return g.currentStep
}

// Close performs resource cleanup after the environment is no longer
// needed
func (g *GymEnv) Close() error {
	g.Environment.Close()
	return nil
}

// Shutdown closes the GoGym package. No GymEnv may be used afterwards.
func Shutdown() {
	gogym.Close()
}
