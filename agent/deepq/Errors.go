package deepq

import (
	"errors"
	"fmt"

	"gorgonia.org/tensor"
)

// ErrShape is returned when a state tensor does not have the shape the
// agent was constructed for
var ErrShape = errors.New("shape mismatch")

// checkState returns an error wrapping ErrShape if state is not a
// contiguous float64 tensor of the given shape
func checkState(op string, state *tensor.Dense, shape []int) error {
	if state == nil {
		return fmt.Errorf("%v: %w: nil state", op, ErrShape)
	}
	if state.Dtype() != tensor.Float64 {
		return fmt.Errorf("%v: %w: want dtype %v have %v", op, ErrShape,
			tensor.Float64, state.Dtype())
	}
	if !state.Shape().Eq(tensor.Shape(shape)) {
		return fmt.Errorf("%v: %w\n\twant(%v)\n\thave(%v)", op, ErrShape,
			tensor.Shape(shape), state.Shape())
	}
	if n := len(flatData(state)); n != state.Shape().TotalSize() {
		return fmt.Errorf("%v: %w: backing data has %v values for shape %v",
			op, ErrShape, n, state.Shape())
	}
	return nil
}

// materialize returns state with its own row-major backing data if it
// is a view of another tensor, and state itself otherwise
func materialize(state *tensor.Dense) *tensor.Dense {
	if state == nil || !state.IsMaterializable() {
		return state
	}
	return state.Materialize().(*tensor.Dense)
}

// flatData returns the backing data of a float64 tensor. Views must be
// materialized by the caller.
func flatData(t *tensor.Dense) []float64 {
	return t.Data().([]float64)
}
