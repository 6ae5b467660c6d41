// Package movingdot implements a synthetic pixel environment in which
// a white dot on a black screen must be moved to the centre of the
// screen.
//
// There are four actions: up, down, left, and right. Each moves the
// dot by Speed pixels. A move that would take the dot off the screen
// leaves it in place. The reward is +1 if the
// move brought the dot closer to the centre, -1 if it moved the dot
// away, and 0 otherwise. Episodes end when the dot reaches the centre
// or after MaxSteps steps.
package movingdot

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
	env "github.com/pixelrl/pixeldqn/environment"
	ts "github.com/pixelrl/pixeldqn/timestep"
	"golang.org/x/exp/rand"
)

// Actions
const (
	Up int = iota
	Down
	Left
	Right
)

// Config implements a configuration of the moving dot environment
type Config struct {
	Height   int
	Width    int
	DotSize  int
	Speed    int
	MaxSteps int
}

// DefaultConfig returns a configuration matching the Atari screen size
func DefaultConfig() Config {
	return Config{
		Height:   210,
		Width:    160,
		DotSize:  4,
		Speed:    2,
		MaxSteps: 1000,
	}
}

// Validate returns an error if the Config is invalid
func (c Config) Validate() error {
	if c.Height <= 0 || c.Width <= 0 {
		return fmt.Errorf("validate: illegal screen size %vx%v", c.Height,
			c.Width)
	}
	if c.DotSize <= 0 || c.DotSize > c.Height || c.DotSize > c.Width {
		return fmt.Errorf("validate: illegal dot size %v", c.DotSize)
	}
	if c.Speed <= 0 {
		return fmt.Errorf("validate: speed must be positive")
	}
	return nil
}

// MovingDot implements the moving dot environment
type MovingDot struct {
	Config
	env.StepLimit

	rng     *rand.Rand
	x, y    int // Top left corner of the dot
	current ts.TimeStep
}

// New returns a new MovingDot environment. The environment must be
// Reset before it is stepped.
func New(c Config, seed uint64) (*MovingDot, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	return &MovingDot{
		Config:    c,
		StepLimit: env.NewStepLimit(c.MaxSteps),
		rng:       rand.New(rand.NewSource(seed)),
	}, nil
}

// centre returns the position of the dot's top left corner when the
// dot is centred on the screen
func (m *MovingDot) centre() (int, int) {
	return m.maxX() / 2, m.maxY() / 2
}

func (m *MovingDot) maxX() int {
	return m.Width - m.DotSize
}

func (m *MovingDot) maxY() int {
	return m.Height - m.DotSize
}

// distance returns the squared distance of the dot from the centre
func (m *MovingDot) distance(x, y int) int {
	cx, cy := m.centre()
	return (x-cx)*(x-cx) + (y-cy)*(y-cy)
}

// AtGoal returns whether the dot is at the centre of the screen
func (m *MovingDot) AtGoal() bool {
	return m.distance(m.x, m.y) == 0
}

// Position returns the top left corner of the dot
func (m *MovingDot) Position() (int, int) {
	return m.x, m.y
}

// Reset places the dot at a random position away from the centre.
// Positions are on the grid of points reachable from the centre in
// moves of Speed pixels.
func (m *MovingDot) Reset() (ts.TimeStep, error) {
	cx, cy := m.centre()
	for {
		m.x = m.gridPoint(cx, m.maxX())
		m.y = m.gridPoint(cy, m.maxY())
		if !m.AtGoal() {
			break
		}
	}

	m.current = ts.New(ts.First, 0, m.render(), 0)
	return m.current, nil
}

// Step moves the dot in the direction given by action
func (m *MovingDot) Step(action int) (ts.TimeStep, bool, error) {
	if action < 0 || action >= m.NumActions() {
		return ts.TimeStep{}, true, fmt.Errorf("step: illegal action %v",
			action)
	}

	before := m.distance(m.x, m.y)
	x, y := m.x, m.y
	switch action {
	case Up:
		y -= m.Speed
	case Down:
		y += m.Speed
	case Left:
		x -= m.Speed
	case Right:
		x += m.Speed
	}
	if x >= 0 && x <= m.maxX() && y >= 0 && y <= m.maxY() {
		m.x, m.y = x, y
	}
	after := m.distance(m.x, m.y)

	var reward float64
	switch {
	case after < before:
		reward = 1
	case after > before:
		reward = -1
	}

	t := ts.New(ts.Mid, reward, m.render(), m.current.Number+1)
	done := m.AtGoal()
	if done {
		t.StepType = ts.Last
	}
	done = m.End(&t) || done
	m.current = t

	return t, done, nil
}

// render draws the current screen
func (m *MovingDot) render() image.Image {
	dc := gg.NewContext(m.Width, m.Height)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	dc.SetRGB(1, 1, 1)
	dc.DrawRectangle(float64(m.x), float64(m.y), float64(m.DotSize),
		float64(m.DotSize))
	dc.Fill()

	return dc.Image()
}

// NumActions returns the number of actions in the environment
func (m *MovingDot) NumActions() int {
	return 4
}

// ObservationShape returns the shape of the rendered frames
func (m *MovingDot) ObservationShape() []int {
	return []int{m.Height, m.Width, 3}
}

// CurrentTimeStep returns the current timestep in the environment
func (m *MovingDot) CurrentTimeStep() ts.TimeStep {
	return m.current
}

// Close implements the environment.Environment interface
func (m *MovingDot) Close() error {
	return nil
}

// gridPoint returns a uniformly random point in [0, max] that differs
// from centre by a multiple of Speed
func (m *MovingDot) gridPoint(centre, max int) int {
	below := centre / m.Speed
	above := (max - centre) / m.Speed
	return centre + m.Speed*(m.rng.Intn(below+above+1)-below)
}
