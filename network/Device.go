package network

import (
	"errors"
	"fmt"

	G "gorgonia.org/gorgonia"
)

// ErrNoAccelerator is returned when accelerator placement is requested
// from a binary built without accelerator support.
var ErrNoAccelerator = errors.New("accelerator support not compiled in " +
	"(build with -tags cuda)")

// Device describes where the computational graphs of a QNetwork are
// executed. The Device is resolved once when a network is constructed.
type Device string

const (
	CPU         Device = "cpu"
	Accelerator Device = "accelerator"
)

// VMOpts returns the Gorgonia VM options that place execution on the
// Device
func (d Device) VMOpts() ([]G.VMOpt, error) {
	switch d {
	case CPU, "":
		return nil, nil
	case Accelerator:
		return acceleratorOpts()
	}
	return nil, fmt.Errorf("vmopts: unknown device %q", d)
}
