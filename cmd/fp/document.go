package main

import (
	"errors"
	"os"

	"github.com/matsen/findpapers/internal/collection"
	"github.com/matsen/findpapers/internal/config"
	"github.com/matsen/findpapers/internal/storage"
)

// mustLoadSearch loads a search document or exits.
func mustLoadSearch(path string) *collection.Search {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		exitWithError(ExitError, "search document not found: %s", path)
	}
	s, err := storage.LoadSearch(path, collection.WithLogger(log))
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	return s
}

// mustOpenIndex opens the index next to a search document or exits. With
// mustExist set, a missing index is an error pointing at "fp index rebuild".
func mustOpenIndex(searchPath string, mustExist bool) *storage.DB {
	path := config.IndexPath(searchPath)
	if mustExist {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			exitWithError(ExitDataError, "index not found: %s (run 'fp index rebuild %s')", path, searchPath)
		}
	}
	db, err := storage.OpenDB(path)
	if err != nil {
		exitWithError(ExitDataError, "opening index: %v", err)
	}
	return db
}
