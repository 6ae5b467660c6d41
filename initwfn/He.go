package initwfn

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// HeUConfig implements a configuration of the He uniform
// initialization algorithm.
type HeUConfig struct {
	Gain float64
	Seed uint64
}

// NewHeU returns a new He Uniform weight initializer
func NewHeU(gain float64, seed uint64) (*InitWFn, error) {
	config := HeUConfig{
		Gain: gain,
		Seed: seed,
	}

	return newInitWFn(config)
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (h HeUConfig) Type() Type {
	return HeU
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn. Weights are drawn from U(-b, b) with
// b = gain * sqrt(6 / fanIn).
func (h HeUConfig) Create() G.InitWFn {
	rng := rand.New(rand.NewSource(h.Seed))

	return func(dt tensor.Dtype, s ...int) interface{} {
		bound := h.Gain * math.Sqrt(6.0/float64(fanIn(s...)))
		dist := distuv.Uniform{Min: -bound, Max: bound, Src: rng}

		data := make([]float64, tensor.Shape(s).TotalSize())
		for i := range data {
			data[i] = dist.Rand()
		}
		return asDtype(dt, data)
	}
}

// HeNConfig implements a configuration of the He normal
// initialization algorithm.
type HeNConfig struct {
	Gain float64
	Seed uint64
}

// NewHeN returns a new He Normal weight initializer
func NewHeN(gain float64, seed uint64) (*InitWFn, error) {
	config := HeNConfig{
		Gain: gain,
		Seed: seed,
	}

	return newInitWFn(config)
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (h HeNConfig) Type() Type {
	return HeN
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn. Weights are drawn from N(0, σ²) with
// σ = gain * sqrt(2 / fanIn).
func (h HeNConfig) Create() G.InitWFn {
	rng := rand.New(rand.NewSource(h.Seed))

	return func(dt tensor.Dtype, s ...int) interface{} {
		sigma := h.Gain * math.Sqrt(2.0/float64(fanIn(s...)))
		dist := distuv.Normal{Mu: 0, Sigma: sigma, Src: rng}

		data := make([]float64, tensor.Shape(s).TotalSize())
		for i := range data {
			data[i] = dist.Rand()
		}
		return asDtype(dt, data)
	}
}
