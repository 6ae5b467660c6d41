package checkpointer

import (
	"context"
	"fmt"
	"time"

	"github.com/pixelrl/pixeldqn/checkpoint"
)

// nStep implements checkpointing every N episodes
type nStep struct {
	interval int
	runID    string
	object   Snapshotter // Agent to save
	store    checkpoint.Store
}

// NewNStep returns a checkpointer that saves object to store every n
// episodes, under the run runID. The store must already be
// initialized.
func NewNStep(n int, object Snapshotter, store checkpoint.Store,
	runID string) (Checkpointer, error) {
	if n <= 0 {
		return nil, fmt.Errorf("newNStep: interval must be > 0\n\thave(%v)", n)
	}
	if object == nil || store == nil {
		return nil, fmt.Errorf("newNStep: agent and store must be non-nil")
	}
	if runID == "" {
		return nil, fmt.Errorf("newNStep: run id is required")
	}

	return &nStep{
		interval: n,
		runID:    runID,
		object:   object,
		store:    store,
	}, nil
}

// Checkpoint saves the tracked agent if episode is a multiple of the
// checkpointing interval
func (n *nStep) Checkpoint(ctx context.Context, episode, step int) error {
	if episode%n.interval == 0 {
		return n.Save(ctx, episode, step)
	}
	return nil
}

// Save saves the tracked agent
func (n *nStep) Save(ctx context.Context, episode, step int) error {
	r := checkpoint.Record{
		RunID:   n.runID,
		Episode: episode,
		Step:    step,
		Time:    time.Now(),
		Agent:   n.object.Snapshot(),
	}
	if err := n.store.Save(ctx, r); err != nil {
		return fmt.Errorf("checkpoint: %v", err)
	}
	return nil
}
