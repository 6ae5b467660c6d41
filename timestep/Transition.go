package timestep

import (
	"fmt"

	"gorgonia.org/tensor"
)

// Transition records a single interaction with an environment: the
// agent observed State, took Action, received Reward and observed
// NextState. Done is true if NextState ended the episode.
//
// Transitions are treated as immutable once they are created. Use
// NewTransition to copy tensors that the caller still mutates.
type Transition struct {
	State     *tensor.Dense
	Action    int
	Reward    float64
	NextState *tensor.Dense
	Done      bool
}

// NewTransition returns a new Transition that owns contiguous copies
// of the argument state tensors.
func NewTransition(state *tensor.Dense, action int, reward float64,
	nextState *tensor.Dense, done bool) Transition {
	return Transition{
		State:     own(state),
		Action:    action,
		Reward:    reward,
		NextState: own(nextState),
		Done:      done,
	}
}

// own returns a copy of t with its own contiguous backing data. Views
// are materialized rather than cloned so that the copy does not carry
// the backing array of the viewed tensor.
func own(t *tensor.Dense) *tensor.Dense {
	if t.IsMaterializable() {
		return t.Materialize().(*tensor.Dense)
	}
	return t.Clone().(*tensor.Dense)
}

// DoneFloat returns the done flag of the transition as 0 or 1
func (t Transition) DoneFloat() float64 {
	if t.Done {
		return 1.0
	}
	return 0.0
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition | Action: %v  |  Reward: %.2f  |  "+
		"Done: %v  |  State Shape: %v", t.Action, t.Reward, t.Done,
		t.State.Shape())
}
