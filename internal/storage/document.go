package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matsen/findpapers/internal/collection"
)

// SaveSearch writes the search as an indented JSON document. The file is
// replaced atomically so an interrupted save never leaves a truncated
// document behind.
func SaveSearch(path string, s *collection.Search) error {
	data, err := json.MarshalIndent(s.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding search: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".search-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing search: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// LoadSearch reads a document written by SaveSearch.
func LoadSearch(path string, opts ...collection.Option) (*collection.Search, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading search: %w", err)
	}
	var snap collection.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	s, err := collection.FromSnapshot(snap, opts...)
	if err != nil {
		return nil, fmt.Errorf("restoring %s: %w", path, err)
	}
	return s, nil
}
