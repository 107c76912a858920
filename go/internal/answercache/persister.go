package answercache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mcdev12/classroom/go/internal/models"
)

// CacheState is what a Persister stores: the cached questions and the IDs
// removed locally that later refreshes must not bring back.
type CacheState struct {
	Questions []models.Question `json:"questions"`
	Removed   []uuid.UUID       `json:"removed,omitempty"`
}

// Persister stores the cache between runs
type Persister interface {
	Load() (CacheState, error)
	Save(state CacheState) error
}

// FilePersister keeps the cache in a JSON file
type FilePersister struct {
	path string
}

// NewFilePersister creates a persister for path. The directory is created on
// the first save.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Load reads the cache. A missing file is an empty cache. Files written as a
// bare list of questions load with no removed IDs.
func (p *FilePersister) Load() (CacheState, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return CacheState{}, nil
	}
	if err != nil {
		return CacheState{}, fmt.Errorf("failed to read cache file: %w", err)
	}

	var state CacheState
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &state.Questions)
	} else {
		err = json.Unmarshal(data, &state)
	}
	if err != nil {
		return CacheState{}, fmt.Errorf("failed to parse cache file %s: %w", p.path, err)
	}
	return state, nil
}

// Save writes the cache to a temporary file and renames it into place
func (p *FilePersister) Save(state CacheState) error {
	if state.Questions == nil {
		state.Questions = []models.Question{}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}
