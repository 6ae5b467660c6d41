//go:build !cuda
// +build !cuda

package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

func acceleratorOpts() ([]G.VMOpt, error) {
	return nil, fmt.Errorf("vmopts: %w", ErrNoAccelerator)
}
