package checkpoint

import (
	"context"
	"sync"
)

// MemoryStore is a Store which keeps Records in RAM
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]map[int][]byte
	latest      string // Run of the most recently saved Record
	latestEp    int
}

// NewMemoryStore returns a new MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Init initializes the store, discarding any saved Records
func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]map[int][]byte)
	s.latest = ""
	return nil
}

// Save saves a Record. Records are stored encoded so that later changes
// to the agent do not change saved checkpoints.
func (s *MemoryStore) Save(_ context.Context, r Record) error {
	if err := validate("save", r); err != nil {
		return err
	}
	payload, err := EncodeRecord(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}

	if _, ok := s.runs[r.RunID]; !ok {
		s.runs[r.RunID] = make(map[int][]byte)
	}
	s.runs[r.RunID][r.Episode] = payload
	s.latest, s.latestEp = r.RunID, r.Episode
	return nil
}

// Load returns the Record of a run taken at episode
func (s *MemoryStore) Load(_ context.Context, runID string,
	episode int) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return Record{}, false, ErrNotInitialized
	}

	payload, ok := s.runs[runID][episode]
	if !ok {
		return Record{}, false, nil
	}
	r, err := DecodeRecord(payload)
	return r, err == nil, err
}

// Latest returns the Record with the largest episode of a run, or the
// most recently saved Record if runID is empty
func (s *MemoryStore) Latest(ctx context.Context, runID string) (Record,
	bool, error) {
	s.mu.RLock()
	if !s.initialized {
		s.mu.RUnlock()
		return Record{}, false, ErrNotInitialized
	}

	episode := -1
	if runID == "" {
		if s.latest != "" {
			runID, episode = s.latest, s.latestEp
		}
	} else {
		for ep := range s.runs[runID] {
			if ep > episode {
				episode = ep
			}
		}
	}
	s.mu.RUnlock()

	if episode < 0 {
		return Record{}, false, nil
	}
	return s.Load(ctx, runID, episode)
}

// Close closes the store
func (s *MemoryStore) Close() error {
	return nil
}
