package store

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Aman-CERP/reviewsearch/internal/errors"
)

// watchDebounce coalesces bursts of write events into one reconcile.
const watchDebounce = 200 * time.Millisecond

// Watcher observes the review log for appends made by other processes
// sharing the data directory and refreshes the store's cached count.
// Correctness never depends on it — every append reconciles under the
// write lock — but it keeps Count() and diagnostics fresh between writes.
type Watcher struct {
	store  *ReviewStore
	fsw    *fsnotify.Watcher
	logger *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	done    chan struct{}
}

// Watch starts a watcher on the store's log file. It returns an error if
// the underlying fsnotify watcher cannot be created.
func (s *ReviewStore) Watch() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err)
	}

	// Watch the directory, not the file: the log may not exist yet, and
	// rename-based edits would otherwise drop the watch.
	if err := fsw.Add(s.paths.DataDir); err != nil {
		_ = fsw.Close()
		return errors.Wrap(errors.ErrCodeInternal, err)
	}

	w := &Watcher{
		store:  s,
		fsw:    fsw,
		logger: s.logger,
		done:   make(chan struct{}),
	}
	s.watcher = w

	go w.run()
	s.logger.Info("store watcher started", slog.String("dir", s.paths.DataDir))
	return nil
}

func (w *Watcher) run() {
	defer close(w.done)
	logName := filepath.Base(w.store.paths.ReviewsLog)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != logName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.scheduleReconcile()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("store watcher error", slog.String("error", err.Error()))
		}
	}
}

// scheduleReconcile resets the debounce timer; the reconcile runs once
// the event burst settles.
func (w *Watcher) scheduleReconcile() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(watchDebounce, w.reconcile)
}

func (w *Watcher) reconcile() {
	s := w.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reconcileLocked(); err != nil {
		w.logger.Warn("store watcher reconcile failed", slog.String("error", err.Error()))
	}
}

// Stop shuts the watcher down and waits for its loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	_ = w.fsw.Close()
	<-w.done
}
