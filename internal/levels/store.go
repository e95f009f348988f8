package levels

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"sbwatch/internal/model"
)

// Store persists the day's levels between the build job and the live window.
// Writes are atomic (temp file + rename) so a reader never observes a torn
// half-updated document.
type Store struct {
	path string
}

func NewStore(path string) *Store { return &Store{path: path} }

// Load reads the persisted levels. Returns nil with no error when the file
// does not exist yet.
func (s *Store) Load() (*model.Levels, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read levels: %w", err)
	}
	var lv model.Levels
	if err := json.Unmarshal(data, &lv); err != nil {
		return nil, fmt.Errorf("parse levels: %w", err)
	}
	return &lv, nil
}

// Save writes the levels document atomically.
func (s *Store) Save(lv *model.Levels) error {
	data, err := json.MarshalIndent(lv, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal levels: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".levels-*")
	if err != nil {
		return fmt.Errorf("temp levels file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write levels: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync levels: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close levels: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace levels: %w", err)
	}
	return nil
}
