// Package network implements the action-value function approximators
// used by the deep Q-learning agent.
package network

import (
	G "gorgonia.org/gorgonia"
)

// QNetwork maps a batch of stacked-frame observations to one value
// estimate per action.
//
// Learnables is order-stable: two QNetworks built from the same
// ConvConfig return their learnables in the same order, which is what
// Set, Polyak, and SetWeights rely on.
type QNetwork interface {
	Graph() *G.ExprGraph
	BatchSize() int
	Actions() int
	StateShape() []int

	// SetInput binds a flattened batch of NHWC observations to the
	// input node
	SetInput([]float64) error
	Output() G.Value
	Prediction() *G.Node

	Learnables() G.Nodes
	Model() []G.ValueGrad

	// Set copies the weights of the argument into the receiver
	Set(QNetwork) error

	// Polyak moves the receiver's weights toward the argument's by
	// the given interpolation factor
	Polyak(QNetwork, float64) error

	CloneWithBatch(int) (QNetwork, error)

	Weights() [][]float64
	SetWeights([][]float64) error

	Device() Device
}

// Layer is a single trainable layer of a QNetwork
type Layer interface {
	fwd(*G.Node) (*G.Node, error)
	CloneTo(g *G.ExprGraph) Layer
	Weights() *G.Node
	Bias() *G.Node
}
