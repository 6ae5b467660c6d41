package wrappers

import (
	"fmt"

	"github.com/gammazero/deque"
	"gorgonia.org/tensor"
)

// FrameStack keeps the most recent depth preprocessed frames and
// stacks them along the channel dimension, oldest first.
type FrameStack struct {
	depth  int
	height int
	width  int
	frames *deque.Deque[[]float64]
}

// NewFrameStack returns a new FrameStack of the given depth
func NewFrameStack(depth int) (*FrameStack, error) {
	if depth <= 0 {
		return nil, fmt.Errorf("newframestack: depth must be positive"+
			"\n\thave(%v)", depth)
	}
	return &FrameStack{
		depth:  depth,
		frames: deque.New[[]float64](depth),
	}, nil
}

// Reset fills the stack with depth copies of frame, which must have
// shape [height, width]. Reset is called at the start of each episode.
func (f *FrameStack) Reset(frame *tensor.Dense) error {
	shape := frame.Shape()
	if len(shape) != 2 {
		return fmt.Errorf("reset: frame must have shape [height, width]"+
			"\n\thave(%v)", shape)
	}
	f.height, f.width = shape[0], shape[1]

	f.frames.Clear()
	data := frame.Data().([]float64)
	for i := 0; i < f.depth; i++ {
		f.frames.PushBack(append([]float64{}, data...))
	}
	return nil
}

// Push drops the oldest frame and appends frame as the newest
func (f *FrameStack) Push(frame *tensor.Dense) error {
	if f.frames.Len() == 0 {
		return fmt.Errorf("push: stack must be reset before pushing")
	}
	if !frame.Shape().Eq(tensor.Shape{f.height, f.width}) {
		return fmt.Errorf("push: invalid frame shape\n\twant(%v)"+
			"\n\thave(%v)", tensor.Shape{f.height, f.width}, frame.Shape())
	}

	f.frames.PopFront()
	f.frames.PushBack(append([]float64{}, frame.Data().([]float64)...))
	return nil
}

// State returns the stacked frames as a new tensor of shape
// [height, width, depth] whose last channel is the newest frame
func (f *FrameStack) State() (*tensor.Dense, error) {
	if f.frames.Len() == 0 {
		return nil, fmt.Errorf("state: stack must be reset first")
	}

	pixels := f.height * f.width
	data := make([]float64, pixels*f.depth)
	for k := 0; k < f.depth; k++ {
		frame := f.frames.At(k)
		for i, v := range frame {
			data[i*f.depth+k] = v
		}
	}

	return tensor.New(
		tensor.WithShape(f.height, f.width, f.depth),
		tensor.WithBacking(data),
	), nil
}

// Depth returns the number of stacked frames
func (f *FrameStack) Depth() int {
	return f.depth
}
