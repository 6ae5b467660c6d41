package policy

import (
	"fmt"
	"math"
)

// Schedule anneals the exploration rate of an epsilon greedy policy
// exponentially from Start toward End:
//
//	ε(steps) = End + (Start - End) * exp(-steps / Decay)
type Schedule struct {
	Start float64
	End   float64
	Decay float64
}

// At returns the exploration rate after the given number of steps.
// At is non-increasing in steps and At(0) == Start.
func (s Schedule) At(steps int) float64 {
	return s.End + (s.Start-s.End)*math.Exp(-float64(steps)/s.Decay)
}

// Validate returns an error if the Schedule does not describe a
// non-increasing exploration rate in [0, 1]
func (s Schedule) Validate() error {
	if s.End < 0 || s.Start > 1 || s.End > s.Start {
		return fmt.Errorf("validate: schedule must satisfy 0 ≤ end ≤ "+
			"start ≤ 1\n\thave(start=%v, end=%v)", s.Start, s.End)
	}
	if s.Decay <= 0 {
		return fmt.Errorf("validate: decay must be positive\n\thave(%v)",
			s.Decay)
	}
	return nil
}
