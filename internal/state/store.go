package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sitesmith/sitesmith/internal/model"
)

// ErrNotFound reports that no durable snapshot exists yet.
var ErrNotFound = errors.New("no snapshot found")

// Store persists whole ProjectState snapshots to a single JSON document.
// Writes are replace-and-rename, so a crash mid-write never leaves a partial
// snapshot visible, and concurrent external readers (the dashboard) always
// observe a complete document.
type Store struct {
	path string
}

// NewStore creates a snapshot store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.path
}

// Load restores the latest durable snapshot. It returns ErrNotFound when no
// snapshot exists; the caller initializes an empty state in that case.
func (s *Store) Load() (*ProjectState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	st := New()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", s.path, err)
	}
	if st.CreatedFiles == nil {
		st.CreatedFiles = map[string]string{}
	}
	if st.TaskResults == nil {
		st.TaskResults = map[int]model.TaskResult{}
	}
	return st, nil
}

// Save atomically persists the full snapshot: marshal, write to a temporary
// file beside the target, then rename over the previous snapshot. The store
// never merges partial states; callers always hand it the complete next
// state.
func (s *Store) Save(st *ProjectState) error {
	st.LastUpdated = time.Now().UTC()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot temp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
