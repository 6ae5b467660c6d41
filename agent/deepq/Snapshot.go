package deepq

import (
	"fmt"
	"math"

	"github.com/aunum/log"
	ts "github.com/pixelrl/pixeldqn/timestep"
)

// Snapshot holds the state of a DeepQ agent that must be persisted to
// resume training: the online and target weights in Learnables order,
// the exploration state, the number of training calls, and the
// contents of the replay memory from oldest to newest.
type Snapshot struct {
	Online     [][]float64
	Target     [][]float64
	Epsilon    float64
	Steps      int
	TrainCalls int
	Memory     []ts.Transition
}

// Snapshot returns a copy of the agent's state. Transitions are shared
// with the replay memory and must not be mutated.
func (d *DeepQ) Snapshot() Snapshot {
	return Snapshot{
		Online:     d.trainNet.Weights(),
		Target:     d.targetNet.Weights(),
		Epsilon:    d.EpsThreshold(),
		Steps:      d.steps,
		TrainCalls: d.trainCalls,
		Memory:     d.memory.Transitions(),
	}
}

// Restore sets the agent's state to a Snapshot taken from an agent
// with the same configuration. The exploration rate is recomputed
// from the step count. If the Snapshot is invalid, the agent is left
// unchanged.
func (d *DeepQ) Restore(s Snapshot) error {
	if s.Steps < 0 || s.TrainCalls < 0 {
		return fmt.Errorf("restore: illegal counts\n\tsteps(%v)"+
			"\n\ttrain calls(%v)", s.Steps, s.TrainCalls)
	}
	for i, t := range s.Memory {
		if err := checkState("restore", t.State, d.stateShape); err != nil {
			return fmt.Errorf("%w (transition %v)", err, i)
		}
		if err := checkState("restore", t.NextState, d.stateShape); err != nil {
			return fmt.Errorf("%w (transition %v)", err, i)
		}
	}

	// Both weight sets are checked before either network is written
	layout := d.trainNet.Weights()
	if err := checkWeights(layout, s.Online); err != nil {
		return fmt.Errorf("restore: online network: %v", err)
	}
	if err := checkWeights(layout, s.Target); err != nil {
		return fmt.Errorf("restore: target network: %v", err)
	}

	if err := d.trainNet.SetWeights(s.Online); err != nil {
		return fmt.Errorf("restore: online network: %v", err)
	}
	if err := d.targetNet.SetWeights(s.Target); err != nil {
		return fmt.Errorf("restore: target network: %v", err)
	}
	if err := d.policyNet.Set(d.trainNet); err != nil {
		return fmt.Errorf("restore: policy network: %v", err)
	}

	d.steps = s.Steps
	d.trainCalls = s.TrainCalls
	if eps := d.EpsThreshold(); math.Abs(eps-s.Epsilon) > 1e-9 {
		log.Infof("restore: snapshot epsilon %v does not match the "+
			"schedule at step %v, using %v", s.Epsilon, s.Steps, eps)
	}
	d.memory.Restore(s.Memory)

	return nil
}

// checkWeights returns an error if weights does not have the number
// and sizes of weight tensors in layout
func checkWeights(layout, weights [][]float64) error {
	if len(weights) != len(layout) {
		return fmt.Errorf("invalid number of weights\n\twant(%v)\n\thave(%v)",
			len(layout), len(weights))
	}
	for i := range layout {
		if len(weights[i]) != len(layout[i]) {
			return fmt.Errorf("invalid size of weights %v\n\twant(%v)"+
				"\n\thave(%v)", i, len(layout[i]), len(weights[i]))
		}
	}
	return nil
}
