package network

import (
	"fmt"

	"github.com/pixelrl/pixeldqn/initwfn"
	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ConvConfig describes the topology of a convolutional QNetwork.
//
// For index i, Filters[i], Kernels[i], and Strides[i] describe
// convolutional layer i and Hidden[i] is the number of units in fully
// connected hidden layer i. A final linear layer with one unit per
// action is always added. Biases holds one entry per convolutional
// layer, then one per hidden layer, then one for the output layer. If
// Biases is nil, every layer has a bias unit.
type ConvConfig struct {
	Filters []int
	Kernels []int
	Strides []int
	Hidden  []int
	Biases  []bool

	// Activation of every layer but the output layer
	Activation *Activation
	InitWFn    *initwfn.InitWFn
	Device     Device
}

// DefaultConvConfig returns the configuration of the Atari DQN
// feature extractor: 16 8x8 filters with stride 4, 32 4x4 filters
// with stride 2, and 256 hidden units, with ReLU activations and He
// normal weights.
func DefaultConvConfig(seed uint64) ConvConfig {
	init, err := initwfn.NewHeN(1.0, seed)
	if err != nil {
		panic(fmt.Sprintf("defaultconvconfig: %v", err))
	}

	return ConvConfig{
		Filters:    []int{16, 32},
		Kernels:    []int{8, 4},
		Strides:    []int{4, 2},
		Hidden:     []int{256},
		Activation: ReLU(),
		InitWFn:    init,
		Device:     CPU,
	}
}

// numLayers returns the total number of layers including the output
func (c ConvConfig) numLayers() int {
	return len(c.Filters) + len(c.Hidden) + 1
}

// biases returns the bias flag of each layer
func (c ConvConfig) biases() []bool {
	if c.Biases != nil {
		return c.Biases
	}
	b := make([]bool, c.numLayers())
	for i := range b {
		b[i] = true
	}
	return b
}

// Validate returns an error if the configuration cannot describe a
// network taking inputs of shape stateShape.
func (c ConvConfig) Validate(stateShape []int) error {
	if len(stateShape) != 3 {
		return fmt.Errorf("validate: state shape must be [H, W, C]"+
			"\n\twant(3 dims)\n\thave(%v)", stateShape)
	}
	for _, dim := range stateShape {
		if dim <= 0 {
			return fmt.Errorf("validate: illegal state shape %v", stateShape)
		}
	}

	if len(c.Filters) != len(c.Kernels) || len(c.Filters) != len(c.Strides) {
		return fmt.Errorf("validate: filters, kernels, and strides must "+
			"have equal lengths\n\thave(%d, %d, %d)", len(c.Filters),
			len(c.Kernels), len(c.Strides))
	}

	if c.Biases != nil && len(c.Biases) != c.numLayers() {
		return fmt.Errorf("validate: invalid number of biases"+
			"\n\twant(%d)\n\thave(%d)", c.numLayers(), len(c.Biases))
	}

	if c.Activation == nil {
		return fmt.Errorf("validate: activation must be set")
	}
	if c.InitWFn == nil {
		return fmt.Errorf("validate: weight initializer must be set")
	}

	h, w := stateShape[0], stateShape[1]
	for i := range c.Filters {
		if c.Filters[i] <= 0 || c.Kernels[i] <= 0 || c.Strides[i] <= 0 {
			return fmt.Errorf("validate: illegal convolution %d", i)
		}
		if c.Kernels[i] > h || c.Kernels[i] > w {
			return fmt.Errorf("validate: kernel %d of size %d does not fit "+
				"input of size %dx%d", i, c.Kernels[i], h, w)
		}
		h = convOutSize(h, c.Kernels[i], c.Strides[i])
		w = convOutSize(w, c.Kernels[i], c.Strides[i])
	}

	for i, units := range c.Hidden {
		if units <= 0 {
			return fmt.Errorf("validate: illegal hidden layer %d size %d",
				i, units)
		}
	}

	if _, err := c.Device.VMOpts(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

// convQNet implements a QNetwork as a stack of convolutional layers
// followed by a stack of fully connected layers.
type convQNet struct {
	g          *G.ExprGraph
	stateShape []int
	actions    int
	batchSize  int
	device     Device

	input    *G.Node
	convs    []Layer
	fcLayers []Layer

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewConvQNet creates a convolutional QNetwork in the graph g that
// takes batches of batch observations of shape stateShape = [H, W, C]
// and predicts actions action values per observation.
//
// The input node is NHWC and is transposed to NCHW for convolution.
// Every call draws fresh weights from c.InitWFn, so two networks built
// from the same ConvConfig are initialized independently.
func NewConvQNet(stateShape []int, actions, batch int, g *G.ExprGraph,
	c ConvConfig) (QNetwork, error) {
	if actions <= 0 {
		return nil, fmt.Errorf("newconvqnet: actions must be positive")
	}
	if batch <= 0 {
		return nil, fmt.Errorf("newconvqnet: batch size must be positive")
	}
	if err := c.Validate(stateShape); err != nil {
		return nil, fmt.Errorf("newconvqnet: %w", err)
	}

	init := c.InitWFn.InitWFn()
	biases := c.biases()

	convs := make([]Layer, len(c.Filters))
	channels := stateShape[2]
	h, w := stateShape[0], stateShape[1]
	for i := range c.Filters {
		convs[i] = newConvLayer(g, channels, c.Filters[i], c.Kernels[i],
			c.Strides[i], biases[i], init, c.Activation,
			fmt.Sprintf("conv%d", i))

		channels = c.Filters[i]
		h = convOutSize(h, c.Kernels[i], c.Strides[i])
		w = convOutSize(w, c.Kernels[i], c.Strides[i])
	}

	sizes := append(append([]int{}, c.Hidden...), actions)
	fcLayers := make([]Layer, len(sizes))
	in := channels * h * w
	for i, out := range sizes {
		act := c.Activation
		if i == len(sizes)-1 {
			act = Identity()
		}
		fcLayers[i] = newFCLayer(g, in, out, biases[len(convs)+i], init, act,
			fmt.Sprintf("fc%d", i))
		in = out
	}

	input := newInput(g, batch, stateShape)

	net := &convQNet{
		g:          g,
		stateShape: append([]int{}, stateShape...),
		actions:    actions,
		batchSize:  batch,
		device:     c.Device,
		input:      input,
		convs:      convs,
		fcLayers:   fcLayers,
	}

	if _, err := net.fwd(input); err != nil {
		return nil, fmt.Errorf("newconvqnet: could not compute forward "+
			"pass: %v", err)
	}

	return net, nil
}

// newInput returns a zero-initialized NHWC input node
func newInput(g *G.ExprGraph, batch int, stateShape []int) *G.Node {
	shape := append([]int{batch}, stateShape...)
	return G.NewTensor(
		g,
		tensor.Float64,
		4,
		G.WithShape(shape...),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)
}

// fwd performs the forward pass of the convQNet on the input node
func (c *convQNet) fwd(input *G.Node) (*G.Node, error) {
	x, err := G.Transpose(input, 0, 3, 1, 2)
	if err != nil {
		return nil, fmt.Errorf("fwd: could not transpose input: %v", err)
	}

	for i, l := range c.convs {
		if x, err = l.fwd(x); err != nil {
			msg := "fwd: could not compute forward pass of conv layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	flat := x.Shape().TotalSize() / c.batchSize
	if x, err = G.Reshape(x, tensor.Shape{c.batchSize, flat}); err != nil {
		return nil, fmt.Errorf("fwd: could not flatten features: %v", err)
	}

	for i, l := range c.fcLayers {
		if x, err = l.fwd(x); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}

	c.prediction = x
	G.Read(c.prediction, &c.predVal)

	return x, nil
}

// Graph returns the computational graph of the convQNet
func (c *convQNet) Graph() *G.ExprGraph {
	return c.g
}

// BatchSize returns the number of observations per forward pass
func (c *convQNet) BatchSize() int {
	return c.batchSize
}

// Actions returns the number of actions predicted per observation
func (c *convQNet) Actions() int {
	return c.actions
}

// StateShape returns the [H, W, C] shape of a single observation
func (c *convQNet) StateShape() []int {
	return append([]int{}, c.stateShape...)
}

// Device returns the device the network was built for
func (c *convQNet) Device() Device {
	return c.device
}

// SetInput sets the value of the input node before running the forward
// pass.
func (c *convQNet) SetInput(input []float64) error {
	want := c.input.Shape().TotalSize()
	if len(input) != want {
		return fmt.Errorf("setinput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", want, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(c.input.Shape()...),
	)
	return G.Let(c.input, inputTensor)
}

// Output returns the action values computed by the last forward pass
// as a (batch, actions) matrix
func (c *convQNet) Output() G.Value {
	return c.predVal
}

// Prediction returns the node of the computational graph that stores
// the action values
func (c *convQNet) Prediction() *G.Node {
	return c.prediction
}

// Learnables returns the learnable nodes of the convQNet, layer by
// layer with each layer's weights before its bias.
func (c *convQNet) Learnables() G.Nodes {
	// Lazy instantiation
	if c.learnables == nil {
		c.learnables = c.computeLearnables()
	}
	return c.learnables
}

func (c *convQNet) computeLearnables() G.Nodes {
	layers := append(append([]Layer{}, c.convs...), c.fcLayers...)
	learnables := make([]*G.Node, 0, 2*len(layers))

	for _, l := range layers {
		learnables = append(learnables, l.Weights())
		if bias := l.Bias(); bias != nil {
			learnables = append(learnables, bias)
		}
	}
	return G.Nodes(learnables)
}

// Model returns the learnables nodes with their gradients.
func (c *convQNet) Model() []G.ValueGrad {
	// Lazy instantiation
	if c.model == nil {
		c.model = make([]G.ValueGrad, 0, len(c.Learnables()))
		for _, node := range c.Learnables() {
			c.model = append(c.model, node)
		}
	}
	return c.model
}

// CloneWithBatch clones the convQNet, including its current weights,
// into a new graph with a new input batch size.
func (c *convQNet) CloneWithBatch(batchSize int) (QNetwork, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("clonewithbatch: batch size must be positive")
	}
	graph := G.NewGraph()

	convs := make([]Layer, len(c.convs))
	for i := range c.convs {
		convs[i] = c.convs[i].CloneTo(graph)
	}
	fcLayers := make([]Layer, len(c.fcLayers))
	for i := range c.fcLayers {
		fcLayers[i] = c.fcLayers[i].CloneTo(graph)
	}

	input := newInput(graph, batchSize, c.stateShape)
	net := &convQNet{
		g:          graph,
		stateShape: c.StateShape(),
		actions:    c.actions,
		batchSize:  batchSize,
		device:     c.device,
		input:      input,
		convs:      convs,
		fcLayers:   fcLayers,
	}

	if _, err := net.fwd(input); err != nil {
		return nil, fmt.Errorf("clonewithbatch: could not clone: %v", err)
	}

	return net, nil
}

// Set sets the weights of the convQNet to be equal to the weights of
// another QNetwork with the same topology
func (c *convQNet) Set(source QNetwork) error {
	dest, src, err := pairData(c.Learnables(), source.Learnables())
	if err != nil {
		return fmt.Errorf("set: %v", err)
	}

	for i := range dest {
		copy(dest[i], src[i])
	}
	return nil
}

// Polyak sets the weights of the convQNet to be a polyak average
// between its existing weights and the weights of another QNetwork:
// w ← tau * source + (1 - tau) * w
func (c *convQNet) Polyak(source QNetwork, tau float64) error {
	if tau == 1.0 {
		return c.Set(source)
	}

	dest, src, err := pairData(c.Learnables(), source.Learnables())
	if err != nil {
		return fmt.Errorf("polyak: %v", err)
	}

	for i := range dest {
		floats.Scale(1-tau, dest[i])
		floats.AddScaled(dest[i], tau, src[i])
	}
	return nil
}

// Weights returns a copy of the weights of each learnable node in
// Learnables order
func (c *convQNet) Weights() [][]float64 {
	learnables := c.Learnables()
	weights := make([][]float64, len(learnables))

	for i, node := range learnables {
		data := node.Value().Data().([]float64)
		weights[i] = append([]float64{}, data...)
	}
	return weights
}

// SetWeights overwrites the weights of each learnable node with the
// given values, which must be in Learnables order
func (c *convQNet) SetWeights(weights [][]float64) error {
	learnables := c.Learnables()
	if len(weights) != len(learnables) {
		return fmt.Errorf("setweights: invalid number of weights"+
			"\n\twant(%v)\n\thave(%v)", len(learnables), len(weights))
	}

	for i, node := range learnables {
		data := node.Value().Data().([]float64)
		if len(data) != len(weights[i]) {
			return fmt.Errorf("setweights: invalid size of weights %v"+
				"\n\twant(%v)\n\thave(%v)", i, len(data), len(weights[i]))
		}
		copy(data, weights[i])
	}
	return nil
}

// pairData returns the backing data of two equally shaped lists of
// learnables. The weights are updated in place so that tape machines
// holding the destination nodes observe the change.
func pairData(dest, src G.Nodes) ([][]float64, [][]float64, error) {
	if len(dest) != len(src) {
		return nil, nil, fmt.Errorf("invalid number of learnables"+
			"\n\twant(%v)\n\thave(%v)", len(dest), len(src))
	}

	destData := make([][]float64, len(dest))
	srcData := make([][]float64, len(src))
	for i := range dest {
		if !dest[i].Shape().Eq(src[i].Shape()) {
			return nil, nil, fmt.Errorf("learnable %v has incompatible "+
				"shape\n\twant(%v)\n\thave(%v)", i, dest[i].Shape(),
				src[i].Shape())
		}
		destData[i] = dest[i].Value().Data().([]float64)
		srcData[i] = src[i].Value().Data().([]float64)
	}
	return destData, srcData, nil
}
