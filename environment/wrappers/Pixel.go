package wrappers

import (
	"fmt"

	"github.com/pixelrl/pixeldqn/environment"
	ts "github.com/pixelrl/pixeldqn/timestep"
)

// Pixel wraps an environment that renders frames and fills in the
// Observation of each TimeStep with the stack of the most recent
// preprocessed frames.
//
// Pixel itself implements the environment.Environment interface, and
// is therefore itself an Environment.
type Pixel struct {
	environment.Environment
	preprocessor Preprocessor
	stack        *FrameStack
}

// NewPixel returns a new Pixel wrapper producing observations of shape
// [height, width, depth]
func NewPixel(env environment.Environment, height, width,
	depth int) (*Pixel, error) {
	preprocessor, err := NewPreprocessor(height, width)
	if err != nil {
		return nil, fmt.Errorf("newpixel: %v", err)
	}
	stack, err := NewFrameStack(depth)
	if err != nil {
		return nil, fmt.Errorf("newpixel: %v", err)
	}

	return &Pixel{
		Environment:  env,
		preprocessor: preprocessor,
		stack:        stack,
	}, nil
}

// Reset resets the wrapped environment and the frame stack
func (p *Pixel) Reset() (ts.TimeStep, error) {
	t, err := p.Environment.Reset()
	if err != nil {
		return ts.TimeStep{}, err
	}

	frame, err := p.preprocessor.Process(t.Frame)
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %v", err)
	}
	if err := p.stack.Reset(frame); err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %v", err)
	}

	if t.Observation, err = p.stack.State(); err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %v", err)
	}
	return t, nil
}

// Step steps the wrapped environment and pushes the new frame
func (p *Pixel) Step(action int) (ts.TimeStep, bool, error) {
	t, done, err := p.Environment.Step(action)
	if err != nil {
		return ts.TimeStep{}, true, err
	}

	frame, err := p.preprocessor.Process(t.Frame)
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: %v", err)
	}
	if err := p.stack.Push(frame); err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: %v", err)
	}

	if t.Observation, err = p.stack.State(); err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: %v", err)
	}
	return t, done, nil
}

// ObservationShape returns the shape of the stacked observations
func (p *Pixel) ObservationShape() []int {
	return []int{p.preprocessor.Height, p.preprocessor.Width,
		p.stack.Depth()}
}
