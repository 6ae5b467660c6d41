// Package checkpoint persists the state of a training run so that it
// can be resumed or evaluated later.
//
// A Record bundles a DeepQ agent Snapshot with the run and episode it
// was taken in. Records are gob encoded and kept by a Store. Stores
// are keyed by run ID and episode: saving a second Record for the same
// run and episode replaces the first.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pixelrl/pixeldqn/agent/deepq"
)

// ErrNotInitialized is returned when a Store is used before Init
var ErrNotInitialized = errors.New("store is not initialized")

// Record is a single checkpoint of a training run
type Record struct {
	RunID   string
	Episode int
	Step    int // Step of the episode the checkpoint was taken on
	Time    time.Time
	Agent   deepq.Snapshot
}

func (r Record) String() string {
	return fmt.Sprintf("Checkpoint | Run: %v  |  Episode: %v  |  Step: %v"+
		"  |  Agent Steps: %v  |  Time: %v", r.RunID, r.Episode, r.Step,
		r.Agent.Steps, r.Time.Format(time.RFC3339))
}

// Store persists checkpoint Records
type Store interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, r Record) error

	// Load returns the Record of a run taken at episode. The boolean is
	// false if no such Record exists.
	Load(ctx context.Context, runID string, episode int) (Record, bool, error)

	// Latest returns the Record with the largest episode of a run. If
	// runID is empty, the most recently saved Record of any run is
	// returned.
	Latest(ctx context.Context, runID string) (Record, bool, error)

	Close() error
}

// Kind is a Store backend
type Kind string

const (
	Memory Kind = "memory"
	File   Kind = "file"
	SQLite Kind = "sqlite"
)

// NewStore returns a new, uninitialized Store of the given kind. The
// path is a directory for File stores and a database file for SQLite
// stores, and is ignored for Memory stores.
func NewStore(kind Kind, path string) (Store, error) {
	switch kind {
	case "", Memory:
		return NewMemoryStore(), nil

	case File:
		return NewFileStore(path), nil

	case SQLite:
		return NewSQLiteStore(path), nil
	}

	return nil, fmt.Errorf("newStore: unsupported store backend %v", kind)
}

// NewRunID returns a new unique run ID
func NewRunID() string {
	return uuid.NewString()
}

func validate(op string, r Record) error {
	if r.RunID == "" {
		return fmt.Errorf("%v: run id is required", op)
	}
	if r.Episode < 0 {
		return fmt.Errorf("%v: episode must be >= 0\n\thave(%v)", op,
			r.Episode)
	}
	return nil
}
