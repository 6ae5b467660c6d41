// Package envconfig provides configuration structs for configuring
// pixel environments together with their preprocessing. Environment
// configurations in this package are JSON serializable.
package envconfig

import (
	"fmt"

	env "github.com/pixelrl/pixeldqn/environment"
	"github.com/pixelrl/pixeldqn/environment/gym"
	"github.com/pixelrl/pixeldqn/environment/movingdot"
	"github.com/pixelrl/pixeldqn/environment/wrappers"
)

// EnvName stores the name of environments that can be configured with
// this package
type EnvName string

// Environments available for configuration
const (
	MovingDot EnvName = "MovingDot"
	Gym       EnvName = "Gym"
)

// Config implements a specific configuration of a pixel environment.
// Rendered frames of size RawHeight x RawWidth are converted to
// grayscale, resized to FrameHeight x FrameWidth, and the most recent
// StackDepth frames are stacked into each observation.
type Config struct {
	Environment   EnvName
	GymID         string // Only used by Gym environments
	EpisodeCutoff int    // Only used by MovingDot, Gym uses its own

	RawHeight   int
	RawWidth    int
	FrameHeight int
	FrameWidth  int
	StackDepth  int
}

// Default returns the configuration of the moving dot task with
// 84x84x4 observations
func Default() Config {
	return Config{
		Environment:   MovingDot,
		GymID:         "Pong-v0",
		EpisodeCutoff: 1000,
		RawHeight:     210,
		RawWidth:      160,
		FrameHeight:   84,
		FrameWidth:    84,
		StackDepth:    4,
	}
}

// Validate returns an error if the Config is invalid
func (c Config) Validate() error {
	switch c.Environment {
	case MovingDot:
	case Gym:
		if c.GymID == "" {
			return fmt.Errorf("validate: gym environments need a GymID")
		}
	default:
		return fmt.Errorf("validate: no such environment %v", c.Environment)
	}

	if c.RawHeight <= 0 || c.RawWidth <= 0 {
		return fmt.Errorf("validate: illegal raw frame size %vx%v",
			c.RawHeight, c.RawWidth)
	}
	if c.FrameHeight <= 0 || c.FrameWidth <= 0 {
		return fmt.Errorf("validate: illegal frame size %vx%v",
			c.FrameHeight, c.FrameWidth)
	}
	if c.StackDepth <= 0 {
		return fmt.Errorf("validate: stack depth must be positive")
	}
	return nil
}

// ObservationShape returns the shape of the observations produced by
// the configured environment
func (c Config) ObservationShape() []int {
	return []int{c.FrameHeight, c.FrameWidth, c.StackDepth}
}

// Create returns the environment described by the Config wrapped so
// that its timesteps carry stacked observations.
func (c Config) Create(seed uint64) (*wrappers.Pixel, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}

	var raw env.Environment
	var err error
	switch c.Environment {
	case MovingDot:
		raw, err = CreateMovingDot(c.RawHeight, c.RawWidth, c.EpisodeCutoff,
			seed)
	case Gym:
		raw, err = gym.New(c.GymID, c.RawHeight, c.RawWidth, seed)
	}
	if err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	pixel, err := wrappers.NewPixel(raw, c.FrameHeight, c.FrameWidth,
		c.StackDepth)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("create: %v", err)
	}
	return pixel, nil
}

// CreateMovingDot is a factory for creating the MovingDot environment
// with default dot parameters
func CreateMovingDot(height, width, cutoff int,
	seed uint64) (*movingdot.MovingDot, error) {
	c := movingdot.DefaultConfig()
	c.Height = height
	c.Width = width
	c.MaxSteps = cutoff

	return movingdot.New(c, seed)
}
