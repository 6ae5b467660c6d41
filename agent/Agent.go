// Package agent defines an agent interface
package agent

import (
	"gorgonia.org/tensor"
)

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Learner, which learns weights, and a Policy
// which chooses actions in each state. The Policy and the Learner share
// weights so that any changes the Learner makes are reflected in the
// actions the Policy chooses.
type Agent interface {
	Learner
	Policy
}

// A Closer is an agent that must be closed after it is done learning
type Closer interface {
	Agent
	Close() error
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	// Store records that action taken in state led to nextState
	Store(state *tensor.Dense, action int, reward float64,
		nextState *tensor.Dense, done bool) error

	// Train performs a single update and returns the training loss
	Train() (float64, error)

	// SoftUpdate moves the target weights toward the learned weights
	SoftUpdate(tau float64) error

	// Tau returns the configured soft update rate
	Tau() float64

	// MemoryLen returns the number of stored transitions
	MemoryLen() int
}

// Policy represents a policy that an agent can have.
type Policy interface {
	// ChooseAction selects an action to take in state
	ChooseAction(state *tensor.Dense) (int, error)

	// EpsThreshold returns the current exploration rate
	EpsThreshold() float64

	Eval()        // Set policy to evaluation mode
	Explore()     // Set policy to training mode
	IsEval() bool // Indicates if in evaluation mode
}
