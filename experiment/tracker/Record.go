package tracker

import (
	"fmt"
	"time"
)

// Record holds the data logged at the end of a single episode
type Record struct {
	Episode     int
	TotalReward float64
	TotalLoss   float64
	Steps       int // Steps taken in the episode
	MemorySize  int
	Epsilon     float64
	Duration    time.Duration
}

func (r Record) String() string {
	return fmt.Sprintf("Episode: %d  |  Return: %.2f  |  Loss: %.4f  |  "+
		"Steps: %d  |  Memory: %d  |  Epsilon: %.3f  |  Time: %v",
		r.Episode, r.TotalReward, r.TotalLoss, r.Steps, r.MemorySize,
		r.Epsilon, r.Duration.Round(time.Millisecond))
}
