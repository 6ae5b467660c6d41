package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
)

var checkpointFile = regexp.MustCompile(`^episode(\d+)-step(\d+)\.gob$`)

// FileStore is a Store which saves each Record in its own gob file at
// <dir>/<run id>/episode<N>-step<M>.gob
type FileStore struct {
	dir string

	mu          sync.Mutex
	initialized bool
}

// NewFileStore returns a new FileStore rooted at dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Filename returns the name of the file a Record is saved in, relative
// to the run directory
func Filename(episode, step int) string {
	return fmt.Sprintf("episode%d-step%d.gob", episode, step)
}

// Init creates the store directory if it does not exist
func (f *FileStore) Init(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dir == "" {
		return fmt.Errorf("init: checkpoint directory is required")
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("init: %v", err)
	}
	f.initialized = true
	return nil
}

// Save saves a Record, replacing any other Record of the same run and
// episode
func (f *FileStore) Save(_ context.Context, r Record) error {
	if err := validate("save", r); err != nil {
		return err
	}
	payload, err := EncodeRecord(r)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.initialized {
		return ErrNotInitialized
	}

	runDir := filepath.Join(f.dir, r.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("save: %v", err)
	}

	old, err := f.episodes(runDir)
	if err != nil {
		return err
	}

	// Write to a temporary file first so that an interrupted save does
	// not leave a truncated checkpoint behind
	filename := filepath.Join(runDir, Filename(r.Episode, r.Step))
	tmp := filename + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("save: %v", err)
	}
	if err := os.Rename(tmp, filename); err != nil {
		return fmt.Errorf("save: %v", err)
	}

	if prev, ok := old[r.Episode]; ok && prev != filepath.Base(filename) {
		if err := os.Remove(filepath.Join(runDir, prev)); err != nil {
			return fmt.Errorf("save: could not remove old checkpoint: %v",
				err)
		}
	}
	return nil
}

// Load returns the Record of a run taken at episode
func (f *FileStore) Load(_ context.Context, runID string,
	episode int) (Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.initialized {
		return Record{}, false, ErrNotInitialized
	}

	runDir := filepath.Join(f.dir, runID)
	files, err := f.episodes(runDir)
	if err != nil {
		return Record{}, false, err
	}
	name, ok := files[episode]
	if !ok {
		return Record{}, false, nil
	}
	return f.read(filepath.Join(runDir, name))
}

// Latest returns the Record with the largest episode of a run. If runID
// is empty, the most recently modified checkpoint file of any run is
// loaded.
func (f *FileStore) Latest(ctx context.Context, runID string) (Record,
	bool, error) {
	if runID != "" {
		f.mu.Lock()
		files, err := f.episodes(filepath.Join(f.dir, runID))
		initialized := f.initialized
		f.mu.Unlock()

		if !initialized {
			return Record{}, false, ErrNotInitialized
		}
		if err != nil {
			return Record{}, false, err
		}

		episode := -1
		for ep := range files {
			if ep > episode {
				episode = ep
			}
		}
		if episode < 0 {
			return Record{}, false, nil
		}
		return f.Load(ctx, runID, episode)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.initialized {
		return Record{}, false, ErrNotInitialized
	}

	runs, err := os.ReadDir(f.dir)
	if err != nil {
		return Record{}, false, fmt.Errorf("latest: %v", err)
	}

	var newest string
	var newestInfo os.FileInfo
	for _, run := range runs {
		if !run.IsDir() {
			continue
		}
		runDir := filepath.Join(f.dir, run.Name())
		files, err := f.episodes(runDir)
		if err != nil {
			return Record{}, false, err
		}
		for _, name := range files {
			info, err := os.Stat(filepath.Join(runDir, name))
			if err != nil {
				return Record{}, false, fmt.Errorf("latest: %v", err)
			}
			if newestInfo == nil || info.ModTime().After(newestInfo.ModTime()) {
				newest, newestInfo = filepath.Join(runDir, name), info
			}
		}
	}

	if newest == "" {
		return Record{}, false, nil
	}
	return f.read(newest)
}

// Close closes the store
func (f *FileStore) Close() error {
	return nil
}

// episodes maps episodes to checkpoint filenames in a run directory
func (f *FileStore) episodes(runDir string) (map[int]string, error) {
	entries, err := os.ReadDir(runDir)
	if os.IsNotExist(err) {
		return map[int]string{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("episodes: %v", err)
	}

	files := make(map[int]string)
	for _, e := range entries {
		match := checkpointFile.FindStringSubmatch(e.Name())
		if e.IsDir() || match == nil {
			continue
		}
		episode, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		files[episode] = e.Name()
	}
	return files, nil
}

func (f *FileStore) read(filename string) (Record, bool, error) {
	payload, err := os.ReadFile(filename)
	if err != nil {
		return Record{}, false, fmt.Errorf("read: %v", err)
	}

	r, err := DecodeRecord(payload)
	if err != nil {
		return Record{}, false, fmt.Errorf("read %v: %w", filename, err)
	}
	return r, true, nil
}
