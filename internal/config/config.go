package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Files derived from a saved search document live next to it and share
// its base name: search.json has search.db and search.citations.jsonl.
const (
	IndexExt     = ".db"
	CitationsExt = ".citations.jsonl"
)

// IndexPath returns the path of the SQLite index for a search document.
func IndexPath(searchPath string) string {
	return stem(searchPath) + IndexExt
}

// CitationsPath returns the path of the citation edge file for a search
// document.
func CitationsPath(searchPath string) string {
	return stem(searchPath) + CitationsExt
}

func stem(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// ValidatePDFDir checks that the PDF directory exists and is a directory.
func ValidatePDFDir(path string) error {
	if path == "" {
		return nil // Empty is allowed (not yet configured)
	}

	expandedPath := ExpandPath(path)

	info, err := os.Stat(expandedPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", expandedPath)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", expandedPath)
	}

	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
