package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a Store which saves Records in a SQLite database
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore returns a new SQLiteStore using the database at path
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Init opens the database and creates the checkpoint table
func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("init: sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("init: %v", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("init: %v", err)
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("init: %v", err)
	}

	s.db = db
	return nil
}

// Save saves a Record, replacing any other Record of the same run and
// episode
func (s *SQLiteStore) Save(ctx context.Context, r Record) error {
	if err := validate("save", r); err != nil {
		return err
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeRecord(r)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO checkpoints (run_id, episode, step, created_at,
			codec_version, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, episode) DO UPDATE SET
			step = excluded.step,
			created_at = excluded.created_at,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, r.RunID, r.Episode, r.Step, r.Time.UnixNano(), CodecVersion, payload)
	if err != nil {
		return fmt.Errorf("save: %v", err)
	}
	return nil
}

// Load returns the Record of a run taken at episode
func (s *SQLiteStore) Load(ctx context.Context, runID string,
	episode int) (Record, bool, error) {
	return s.queryRecord(ctx, `
		SELECT payload FROM checkpoints WHERE run_id = ? AND episode = ?
	`, runID, episode)
}

// Latest returns the Record with the largest episode of a run, or the
// most recently created Record if runID is empty
func (s *SQLiteStore) Latest(ctx context.Context, runID string) (Record,
	bool, error) {
	if runID == "" {
		return s.queryRecord(ctx, `
			SELECT payload FROM checkpoints
			ORDER BY created_at DESC, rowid DESC LIMIT 1
		`)
	}
	return s.queryRecord(ctx, `
		SELECT payload FROM checkpoints WHERE run_id = ?
		ORDER BY episode DESC LIMIT 1
	`, runID)
}

// Runs returns the IDs of all runs with saved Records, most recent
// first
func (s *SQLiteStore) Runs(ctx context.Context) ([]string, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT run_id FROM checkpoints
		GROUP BY run_id ORDER BY MAX(created_at) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("runs: %v", err)
	}
	defer rows.Close()

	var runs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("runs: %v", err)
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) queryRecord(ctx context.Context, query string,
	args ...interface{}) (Record, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Record{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, query, args...).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}

	r, err := DecodeRecord(payload)
	if err != nil {
		return Record{}, false, err
	}
	return r, true, nil
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS checkpoints (
			run_id TEXT NOT NULL,
			episode INTEGER NOT NULL,
			step INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (run_id, episode)
		);
	`)
	return err
}
