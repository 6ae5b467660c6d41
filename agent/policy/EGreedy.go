// Package policy implements epsilon greedy action selection over the
// action values predicted by a network.QNetwork.
package policy

import (
	"fmt"

	"github.com/pixelrl/pixeldqn/utils/floatutils"
	"golang.org/x/exp/rand"
)

// EGreedy selects random actions with probability ε and greedy
// actions otherwise. The value of ε is supplied by the caller on
// each selection so that it can follow a Schedule.
//
// Because computing action values is the expensive part of action
// selection, Explore can be called before the values are computed:
//
//	if action, ok := e.Explore(ε); ok {
//		return action
//	}
//	// compute action values
//	return Greedy(actionValues)
type EGreedy struct {
	numActions int
	rng        *rand.Rand
}

// NewEGreedy returns a new EGreedy policy over numActions actions
func NewEGreedy(numActions int, seed uint64) (*EGreedy, error) {
	if numActions <= 0 {
		return nil, fmt.Errorf("newegreedy: number of actions must be "+
			"positive\n\thave(%v)", numActions)
	}
	return &EGreedy{
		numActions: numActions,
		rng:        rand.New(rand.NewSource(seed)),
	}, nil
}

// NumActions returns the number of actions the policy chooses between
func (e *EGreedy) NumActions() int {
	return e.numActions
}

// Explore returns a uniformly random action and true with probability
// epsilon. Otherwise, it returns false and the caller should act
// greedily.
func (e *EGreedy) Explore(epsilon float64) (int, bool) {
	if e.rng.Float64() < epsilon {
		return e.rng.Intn(e.numActions), true
	}
	return 0, false
}

// SelectAction selects an action given the action values in some state
func (e *EGreedy) SelectAction(actionValues []float64,
	epsilon float64) (int, error) {
	if len(actionValues) != e.numActions {
		return 0, fmt.Errorf("selectaction: invalid number of action "+
			"values\n\twant(%v)\n\thave(%v)", e.numActions,
			len(actionValues))
	}
	if action, ok := e.Explore(epsilon); ok {
		return action, nil
	}
	return Greedy(actionValues), nil
}

// Greedy returns the action of maximum value. Ties are broken in
// favour of the lowest action index.
func Greedy(actionValues []float64) int {
	_, maxIndices := floatutils.MaxSlice(actionValues)
	return maxIndices[0]
}
