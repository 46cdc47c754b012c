// Package store owns the append-only review log and its sequential-index
// invariant: the review on line N of reviews.jsonl carries vector_index N,
// and the set of assigned indices is always {0..count-1} with no gaps,
// under concurrent writers and across process restarts.
package store

import (
	"os"
	"path/filepath"
)

// File names inside the data directory.
const (
	// reviewsLogName is the append-only JSONL review log.
	reviewsLogName = "reviews.jsonl"

	// reviewsIndexName is reserved for a future binary vector index.
	// Whatever is eventually written there must stay position-aligned
	// with the log: line N of the log ↔ vector position N.
	reviewsIndexName = "reviews.index"

	// lockFileName is the cross-process write lock file.
	lockFileName = ".lock"
)

// DataPaths holds the resolved locations of the store's files.
type DataPaths struct {
	DataDir      string
	ReviewsLog   string
	ReviewsIndex string
	LockFile     string
}

// NewDataPaths resolves the store file paths under dataDir.
func NewDataPaths(dataDir string) DataPaths {
	return DataPaths{
		DataDir:      dataDir,
		ReviewsLog:   filepath.Join(dataDir, reviewsLogName),
		ReviewsIndex: filepath.Join(dataDir, reviewsIndexName),
		LockFile:     filepath.Join(dataDir, lockFileName),
	}
}

// EnsureDirectories creates the data directory if needed.
func (p DataPaths) EnsureDirectories() error {
	return os.MkdirAll(p.DataDir, 0o755)
}

// FilesExist reports whether the log and index files exist.
func (p DataPaths) FilesExist() (logExists, indexExists bool) {
	if _, err := os.Stat(p.ReviewsLog); err == nil {
		logExists = true
	}
	if _, err := os.Stat(p.ReviewsIndex); err == nil {
		indexExists = true
	}
	return logExists, indexExists
}
