//go:build cuda
// +build cuda

package network

import (
	G "gorgonia.org/gorgonia"
)

func acceleratorOpts() ([]G.VMOpt, error) {
	return []G.VMOpt{G.UseCudaFor()}, nil
}
