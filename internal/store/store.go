package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/Aman-CERP/reviewsearch/internal/errors"
	"github.com/Aman-CERP/reviewsearch/internal/review"
)

// maxLineBytes bounds a single log line. A review body tops out at 2000
// characters, so 1 MiB leaves ample headroom for escaping.
const maxLineBytes = 1 << 20

// Options configures a ReviewStore.
type Options struct {
	// DataDir is the directory holding the log and its companions.
	DataDir string
	// LockTimeout bounds every lock acquisition (read and write).
	LockTimeout time.Duration
	// MaxReaders caps concurrent readers. Writers exclude all readers.
	MaxReaders int64
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// ReviewStore is the durable, ordered, append-only sequence of reviews.
//
// Concurrency discipline: a weighted semaphore arbitrates in-process
// access (readers weight 1, writers the full weight), and a flock on
// <data_dir>/.lock arbitrates cross-process access (shared for readers,
// exclusive for writers). Every acquisition is bounded by LockTimeout and
// fails with a typed concurrency error rather than hanging.
//
// The vector_index invariant: each accepted review is assigned
// vector_index == its zero-based line position in reviews.jsonl, derived
// from the live count under the write lock. Appends are all-or-nothing:
// on a write or sync failure the log is truncated back to its previous
// length, so readers never observe a torn trailing record.
type ReviewStore struct {
	paths       DataPaths
	lockTimeout time.Duration
	maxReaders  int64
	sem         *semaphore.Weighted
	logger      *slog.Logger

	// mu guards the cached line count and byte size of the log.
	mu   sync.Mutex
	cnt  int
	size int64
	// dirty latches after a failed rollback: the log may end in a torn
	// record, and appends must repair the tail before assigning indices.
	dirty bool

	watcher *Watcher
}

// Open creates (if needed) the data directory and scans the existing log
// so the next assigned vector_index continues the prior sequence.
func Open(opts Options) (*ReviewStore, error) {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 5 * time.Second
	}
	if opts.MaxReaders < 1 {
		opts.MaxReaders = 64
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	paths := NewDataPaths(opts.DataDir)
	if err := paths.EnsureDirectories(); err != nil {
		return nil, errors.New(errors.ErrCodeFilePermission,
			fmt.Sprintf("failed to create data directory: %v", err), err)
	}

	s := &ReviewStore{
		paths:       paths,
		lockTimeout: opts.LockTimeout,
		maxReaders:  opts.MaxReaders,
		sem:         semaphore.NewWeighted(opts.MaxReaders),
		logger:      opts.Logger,
	}

	count, size, err := scanLog(paths.ReviewsLog)
	if err != nil {
		return nil, err
	}
	s.cnt = count
	s.size = size

	s.logger.Info("review store opened",
		slog.String("log", paths.ReviewsLog),
		slog.Int("reviews", count))

	return s, nil
}

// Paths returns the resolved data file locations.
func (s *ReviewStore) Paths() DataPaths {
	return s.paths
}

// Count returns the current number of reviews.
func (s *ReviewStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cnt
}

// Append validates nothing: it persists the given input as the new last
// record, stamping ID, timestamp, and the next sequential vector_index.
// The write happens under the exclusive lock, is flushed before
// returning, and is rolled back (truncated) on failure.
func (s *ReviewStore) Append(ctx context.Context, in review.Input) (review.Review, error) {
	reviews, err := s.AppendBatch(ctx, []review.Input{in})
	if err != nil {
		return review.Review{}, err
	}
	return reviews[0], nil
}

// AppendBatch appends all inputs under a single exclusive-lock window.
// Indices are assigned contiguously starting at the current count, in
// input order. The batch is all-or-nothing: either every record is
// durable or the log is unchanged.
func (s *ReviewStore) AppendBatch(ctx context.Context, ins []review.Input) ([]review.Review, error) {
	if len(ins) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	// Writers take the full semaphore weight, excluding all readers.
	if err := s.sem.Acquire(ctx, s.maxReaders); err != nil {
		return nil, errors.ConcurrencyError("timed out waiting for store write access", err)
	}
	defer s.sem.Release(s.maxReaders)

	flk := NewFileLock(s.paths.LockFile)
	if err := flk.Lock(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = flk.Unlock() }()

	s.mu.Lock()
	defer s.mu.Unlock()

	// A failed rollback leaves a torn trailing record; it must be cut
	// before the count can be trusted again.
	if s.dirty {
		if err := s.repairLocked(); err != nil {
			return nil, err
		}
	}

	// Another process may have appended since we last looked. The lock
	// is held, so reconciling here keeps the index sequence gap-free.
	if err := s.reconcileLocked(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	reviews := make([]review.Review, len(ins))
	var buf bytes.Buffer
	for i, in := range ins {
		reviews[i] = review.Review{
			ID:          uuid.NewString(),
			Title:       in.Title,
			Body:        in.Body,
			ProductID:   in.ProductID,
			Rating:      in.Rating,
			Timestamp:   now,
			VectorIndex: s.cnt + i,
		}
		line, err := json.Marshal(reviews[i])
		if err != nil {
			return nil, errors.New(errors.ErrCodeInternal,
				fmt.Sprintf("failed to encode review: %v", err), err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	if err := s.writeLocked(buf.Bytes()); err != nil {
		return nil, err
	}

	s.cnt += len(ins)
	s.size += int64(buf.Len())

	s.logger.Debug("reviews appended",
		slog.Int("count", len(ins)),
		slog.Int("first_index", reviews[0].VectorIndex),
		slog.Int("last_index", reviews[len(reviews)-1].VectorIndex))

	return reviews, nil
}

// writeLocked appends data to the log, syncs, and truncates back to the
// prior length on any failure so no partial record is observable.
func (s *ReviewStore) writeLocked(data []byte) error {
	f, err := os.OpenFile(s.paths.ReviewsLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return classifyIOError("failed to open review log", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(data); err != nil {
		s.rollback(f)
		return classifyIOError("failed to write review log", err)
	}
	if err := f.Sync(); err != nil {
		s.rollback(f)
		return classifyIOError("failed to sync review log", err)
	}
	return nil
}

// rollback truncates the log back to the last known-good length. When
// the truncate itself fails the store latches dirty: the torn trailing
// record must not be counted as a real one, so appends refuse to assign
// indices until repairLocked cuts the tail.
func (s *ReviewStore) rollback(f *os.File) {
	if err := f.Truncate(s.size); err != nil {
		s.dirty = true
		s.logger.Error("failed to roll back partial append, store latched until repaired",
			slog.String("log", s.paths.ReviewsLog),
			slog.String("error", err.Error()))
	}
}

// repairLocked retries cutting the log back to the last known-good
// length. mu must be held, and the write path holds the file lock.
func (s *ReviewStore) repairLocked() error {
	f, err := os.OpenFile(s.paths.ReviewsLog, os.O_WRONLY, 0o644)
	if os.IsNotExist(err) {
		// The whole log vanished, torn tail included.
		s.cnt, s.size = 0, 0
		s.dirty = false
		return nil
	}
	if err != nil {
		return classifyIOError("failed to open review log for repair", err)
	}
	defer func() { _ = f.Close() }()

	if err := f.Truncate(s.size); err != nil {
		return classifyIOError("failed to repair torn review log tail", err)
	}
	if err := f.Sync(); err != nil {
		return classifyIOError("failed to sync repaired review log", err)
	}

	s.dirty = false
	s.logger.Warn("repaired torn review log tail",
		slog.String("log", s.paths.ReviewsLog),
		slog.Int64("length", s.size))
	return nil
}

// reconcileLocked refreshes the cached count when the log grew or shrank
// outside this process. mu must be held; the write path additionally
// holds the file lock so the refreshed count cannot go stale before the
// append lands.
func (s *ReviewStore) reconcileLocked() error {
	// While a torn tail is pending repair a rescan would count the
	// partial line as a record; the append path repairs first.
	if s.dirty {
		return nil
	}

	info, err := os.Stat(s.paths.ReviewsLog)
	if os.IsNotExist(err) {
		if s.cnt != 0 {
			s.logger.Warn("review log disappeared, resetting count")
			s.cnt, s.size = 0, 0
		}
		return nil
	}
	if err != nil {
		return classifyIOError("failed to stat review log", err)
	}
	if info.Size() == s.size {
		return nil
	}

	count, size, err := scanLog(s.paths.ReviewsLog)
	if err != nil {
		return err
	}
	s.logger.Info("review log changed externally, rescanned",
		slog.Int("old_count", s.cnt),
		slog.Int("new_count", count))
	s.cnt, s.size = count, size
	return nil
}

// ReadAll returns the full ordered set of reviews as of call time.
// Readers run concurrently with each other but are excluded from an
// in-flight writer's critical section, so they always see either the
// pre-append or the post-append state.
func (s *ReviewStore) ReadAll(ctx context.Context) ([]review.Review, error) {
	var reviews []review.Review
	err := s.withReadAccess(ctx, func() error {
		var err error
		reviews, err = readLogFile(s.paths.ReviewsLog)
		return err
	})
	return reviews, err
}

// Get returns the review at the given vector index, or false when the
// index is beyond the end of the log. This line-addressed read is the
// access path a future vector index will use.
func (s *ReviewStore) Get(ctx context.Context, index int) (review.Review, bool, error) {
	var (
		rv    review.Review
		found bool
	)
	err := s.withReadAccess(ctx, func() error {
		results, err := readLogLines(s.paths.ReviewsLog, map[int]struct{}{index: {}})
		if err != nil {
			return err
		}
		rv, found = results[index], len(results) == 1
		return nil
	})
	return rv, found, err
}

// GetMany returns the reviews at the given vector indices. Missing
// indices are absent from the result map.
func (s *ReviewStore) GetMany(ctx context.Context, indices []int) (map[int]review.Review, error) {
	want := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		want[i] = struct{}{}
	}

	var results map[int]review.Review
	err := s.withReadAccess(ctx, func() error {
		var err error
		results, err = readLogLines(s.paths.ReviewsLog, want)
		return err
	})
	return results, err
}

// withReadAccess runs fn holding a reader slot and the shared file lock.
func (s *ReviewStore) withReadAccess(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return errors.ConcurrencyError("timed out waiting for store read access", err)
	}
	defer s.sem.Release(1)

	flk := NewFileLock(s.paths.LockFile)
	if err := flk.RLock(ctx); err != nil {
		return err
	}
	defer func() { _ = flk.Unlock() }()

	return fn()
}

// Close stops the watcher if one is running.
func (s *ReviewStore) Close() error {
	if s.watcher != nil {
		s.watcher.Stop()
		s.watcher = nil
	}
	return nil
}

// scanLog derives the review count and byte size of the log. Blank lines
// are ignored, matching the writer which always terminates records with
// a newline.
func scanLog(path string) (count int, size int64, err error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, classifyIOError("failed to open review log", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return 0, 0, classifyIOError("failed to stat review log", err)
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, 0, classifyIOError("failed to scan review log", err)
	}

	return count, info.Size(), nil
}

// readLogFile parses every record in the log, in line order.
func readLogFile(path string) ([]review.Review, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyIOError("failed to open review log", err)
	}
	defer func() { _ = f.Close() }()

	var reviews []review.Review
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rv review.Review
		if err := json.Unmarshal([]byte(text), &rv); err != nil {
			return nil, errors.New(errors.ErrCodeLogCorrupt,
				fmt.Sprintf("review log corrupt at line %d: %v", line, err), err).
				WithDetail("line", fmt.Sprintf("%d", line))
		}
		reviews = append(reviews, rv)
	}
	if err := scanner.Err(); err != nil {
		return nil, classifyIOError("failed to scan review log", err)
	}
	return reviews, nil
}

// readLogLines parses only the records at the wanted zero-based line
// positions (blank lines do not advance the position).
func readLogLines(path string, want map[int]struct{}) (map[int]review.Review, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return map[int]review.Review{}, nil
	}
	if err != nil {
		return nil, classifyIOError("failed to open review log", err)
	}
	defer func() { _ = f.Close() }()

	results := make(map[int]review.Review, len(want))
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	pos := 0
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if _, ok := want[pos]; ok {
			var rv review.Review
			if err := json.Unmarshal([]byte(text), &rv); err != nil {
				return nil, errors.New(errors.ErrCodeLogCorrupt,
					fmt.Sprintf("review log corrupt at position %d: %v", pos, err), err)
			}
			results[pos] = rv
			if len(results) == len(want) {
				break
			}
		}
		pos++
	}
	if err := scanner.Err(); err != nil {
		return nil, classifyIOError("failed to scan review log", err)
	}
	return results, nil
}

// classifyIOError maps an I/O failure onto the storage error taxonomy.
func classifyIOError(msg string, err error) error {
	detail := fmt.Sprintf("%s: %v", msg, err)
	switch {
	case os.IsNotExist(err):
		return errors.New(errors.ErrCodeFileNotFound, detail, err)
	case os.IsPermission(err):
		return errors.New(errors.ErrCodeFilePermission, detail, err)
	default:
		return errors.StorageError(detail, err)
	}
}
