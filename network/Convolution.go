package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// convLayer implements a 2D convolution over NCHW inputs with square
// kernels, no padding, and no dilation.
type convLayer struct {
	filters *G.Node // (out, in, kernel, kernel)
	bias    *G.Node // (1, out, 1, 1)
	kernel  int
	stride  int
	act     *Activation
}

// newConvLayer adds a convolutional layer to the graph g
func newConvLayer(g *G.ExprGraph, in, out, kernel, stride int, bias bool,
	init G.InitWFn, act *Activation, name string) *convLayer {
	filters := G.NewTensor(
		g,
		tensor.Float64,
		4,
		G.WithShape(out, in, kernel, kernel),
		G.WithName(fmt.Sprintf("%vW", name)),
		G.WithInit(init),
	)

	var b *G.Node
	if bias {
		b = G.NewTensor(
			g,
			tensor.Float64,
			4,
			G.WithShape(1, out, 1, 1),
			G.WithName(fmt.Sprintf("%vB", name)),
			G.WithInit(G.Zeroes()),
		)
	}

	return &convLayer{
		filters: filters,
		bias:    b,
		kernel:  kernel,
		stride:  stride,
		act:     act,
	}
}

// convOutSize returns the spatial size of a convolution output along
// one axis
func convOutSize(size, kernel, stride int) int {
	return (size-kernel)/stride + 1
}

// fwd adds the forward pass of the convLayer to the computational
// graph
func (c *convLayer) fwd(x *G.Node) (*G.Node, error) {
	out, err := G.Conv2d(
		x,
		c.filters,
		tensor.Shape{c.kernel, c.kernel},
		[]int{0, 0},
		[]int{c.stride, c.stride},
		[]int{1, 1},
	)
	if err != nil {
		return nil, fmt.Errorf("fwd: could not convolve: %v", err)
	}

	if c.bias != nil {
		// Broadcast one bias per channel over the batch and both
		// spatial dimensions
		out, err = G.BroadcastAdd(out, c.bias, nil, []byte{0, 2, 3})
		if err != nil {
			return nil, fmt.Errorf("fwd: could not add bias: %v", err)
		}
	}

	if c.act == nil || c.act.IsNil() {
		return out, nil
	}
	return c.act.fwd(out)
}

// CloneTo clones a convLayer to a new computational graph
func (c *convLayer) CloneTo(g *G.ExprGraph) Layer {
	var newBias *G.Node
	if c.bias != nil {
		newBias = c.bias.CloneTo(g)
	}

	return &convLayer{
		filters: c.filters.CloneTo(g),
		bias:    newBias,
		kernel:  c.kernel,
		stride:  c.stride,
		act:     c.act,
	}
}

func (c *convLayer) Weights() *G.Node {
	return c.filters
}

func (c *convLayer) Bias() *G.Node {
	return c.bias
}
