//go:build !cuda
// +build !cuda

package network

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
)

func TestAcceleratorUnavailable(t *testing.T) {
	_, err := Accelerator.VMOpts()
	require.True(t, errors.Is(err, ErrNoAccelerator))

	c := smallConfig(t, 1)
	c.Device = Accelerator
	_, err = NewConvQNet(smallShape, 3, 1, G.NewGraph(), c)
	require.True(t, errors.Is(err, ErrNoAccelerator))

	opts, err := CPU.VMOpts()
	require.NoError(t, err)
	require.Empty(t, opts)
}
