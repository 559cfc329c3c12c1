package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Store persists checkpoints as JSON files, one file per checkpoint,
// named {operationID}_{checkpointID}.json.
type Store struct {
	dir string
}

// NewStore creates a checkpoint store rooted at dir. The directory is
// created on first save if it does not exist.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the checkpoint to disk.
func (s *Store) Save(cp *Checkpoint) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	path := filepath.Join(s.dir, cp.OperationID+"_"+cp.CheckpointID+".json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

// Load reads a specific checkpoint by operation and checkpoint ID.
func (s *Store) Load(operationID, checkpointID string) (*Checkpoint, error) {
	path := filepath.Join(s.dir, operationID+"_"+checkpointID+".json")
	return s.loadFile(path)
}

// FindLatest returns the most recent checkpoint for the operation, or
// nil if none exist. Checkpoint IDs sort lexicographically in creation
// order, so the greatest matching filename is the latest.
func (s *Store) FindLatest(operationID string) (*Checkpoint, error) {
	pattern := filepath.Join(s.dir, operationID+"_cp_*.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	sort.Strings(matches)
	return s.loadFile(matches[len(matches)-1])
}

func (s *Store) loadFile(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- paths are built from store dir and IDs
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}
