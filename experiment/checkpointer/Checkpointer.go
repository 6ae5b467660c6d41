// Package checkpointer implements functionality for checkpointing
// agents during an experiment
package checkpointer

import (
	"context"

	"github.com/pixelrl/pixeldqn/agent/deepq"
)

// Snapshotter is an agent whose state can be saved
type Snapshotter interface {
	Snapshot() deepq.Snapshot
}

// Checkpointer checkpoints an agent at the end of episodes
type Checkpointer interface {
	// Checkpoint saves the agent if the episode calls for it
	Checkpoint(ctx context.Context, episode, step int) error

	// Save saves the agent unconditionally
	Save(ctx context.Context, episode, step int) error
}
