package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/Aman-CERP/reviewsearch/internal/errors"
)

// lockRetryDelay is how often a blocked acquisition re-attempts the flock.
const lockRetryDelay = 25 * time.Millisecond

// FileLock provides cross-process file locking using gofrs/flock.
// Acquisition is bounded by the caller's context: when the deadline
// expires before the lock is obtained, a typed concurrency error is
// returned instead of blocking forever. Works on all platforms.
type FileLock struct {
	path  string
	flock *flock.Flock
}

// NewFileLock creates a file lock at the given path.
func NewFileLock(path string) *FileLock {
	return &FileLock{
		path:  path,
		flock: flock.New(path),
	}
}

// Lock acquires the exclusive (writer) lock, retrying until the context
// expires.
func (l *FileLock) Lock(ctx context.Context) error {
	if err := l.ensureDir(); err != nil {
		return err
	}

	ok, err := l.flock.TryLockContext(ctx, lockRetryDelay)
	return l.classify(ok, err, "exclusive")
}

// RLock acquires the shared (reader) lock, retrying until the context
// expires. Multiple readers may hold it concurrently.
func (l *FileLock) RLock(ctx context.Context) error {
	if err := l.ensureDir(); err != nil {
		return err
	}

	ok, err := l.flock.TryRLockContext(ctx, lockRetryDelay)
	return l.classify(ok, err, "shared")
}

// Unlock releases the lock. Safe to call on an unlocked FileLock.
func (l *FileLock) Unlock() error {
	if err := l.flock.Unlock(); err != nil {
		return errors.New(errors.ErrCodeLockFailed,
			fmt.Sprintf("failed to release file lock: %v", err), err)
	}
	return nil
}

// Path returns the path to the lock file.
func (l *FileLock) Path() string {
	return l.path
}

func (l *FileLock) ensureDir() error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(errors.ErrCodeLockFailed,
			fmt.Sprintf("failed to create lock directory: %v", err), err)
	}
	return nil
}

// classify maps flock results onto the error taxonomy. A context
// expiry is a retryable lock timeout; anything else is a hard failure.
func (l *FileLock) classify(acquired bool, err error, kind string) error {
	if acquired {
		return nil
	}
	if err == context.DeadlineExceeded || err == context.Canceled {
		return errors.New(errors.ErrCodeLockTimeout,
			fmt.Sprintf("timed out waiting for %s file lock", kind), err).
			WithDetail("lock_file", l.path)
	}
	if err != nil {
		return errors.New(errors.ErrCodeLockFailed,
			fmt.Sprintf("failed to acquire %s file lock: %v", kind, err), err).
			WithDetail("lock_file", l.path)
	}
	// TryLockContext returned (false, nil): treat as timeout.
	return errors.New(errors.ErrCodeLockTimeout,
		fmt.Sprintf("timed out waiting for %s file lock", kind), nil).
		WithDetail("lock_file", l.path)
}
