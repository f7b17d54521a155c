// Package watch turns an inbox directory of extracted packages into deposits.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nainya/depot/internal/config"
	"github.com/nainya/depot/internal/logger"
	"github.com/nainya/depot/internal/metrics"
)

// SubmitFunc receives a settled package directory. depositID is the
// directory's base name; extractDir is its absolute path.
type SubmitFunc func(depositID, extractDir string)

// InboxWatcher watches a single inbox directory. A package uploader is
// expected to extract the bag into a fresh subdirectory; once that
// subdirectory has been quiet for the settle delay, it becomes a deposit.
type InboxWatcher struct {
	dir     string
	settle  time.Duration
	submit  SubmitFunc
	log     *logger.Logger
	metrics *metrics.Metrics
	fsw     *fsnotify.Watcher

	mu        sync.Mutex
	pending   map[string]time.Time // candidate name -> last event
	submitted map[string]bool
}

// NewInboxWatcher creates a watcher over the configured inbox directory.
func NewInboxWatcher(cfg config.InboxConfig, submit SubmitFunc, log *logger.Logger, m *metrics.Metrics) (*InboxWatcher, error) {
	if submit == nil {
		return nil, fmt.Errorf("watch: nil submit func")
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: creating fsnotify watcher: %w", err)
	}

	return &InboxWatcher{
		dir:       cfg.Dir,
		settle:    cfg.SettleDelay,
		submit:    submit,
		log:       log,
		metrics:   m,
		fsw:       fsw,
		pending:   make(map[string]time.Time),
		submitted: make(map[string]bool),
	}, nil
}

// Run blocks, watching the inbox until the context is cancelled.
// Directories already present at startup are queued as candidates too,
// so packages dropped while the service was down still get ingested.
func (w *InboxWatcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("watch: creating inbox dir: %w", err)
	}
	if err := w.fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch: watching inbox dir: %w", err)
	}
	if err := w.queueExisting(); err != nil {
		return err
	}

	w.log.Info("Inbox watcher started").
		Str("dir", w.dir).
		Dur("settle_delay", w.settle).
		Send()

	interval := w.settle / 2
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("Inbox watcher error").Err(err).Send()

		case <-ticker.C:
			w.flushSettled()
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *InboxWatcher) Close() error {
	return w.fsw.Close()
}

func (w *InboxWatcher) queueExisting() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("watch: scanning inbox dir: %w", err)
	}

	now := time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, entry := range entries {
		if entry.IsDir() {
			w.pending[entry.Name()] = now
		}
	}
	return nil
}

// handleEvent records activity against the top-level inbox entry the
// event belongs to. Writes deep inside a package reset its settle clock.
func (w *InboxWatcher) handleEvent(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.dir, ev.Name)
	if err != nil || rel == "." {
		return
	}
	name := rel
	if idx := firstSeparator(rel); idx >= 0 {
		name = rel[:idx]
	}

	if w.metrics != nil {
		w.metrics.WatcherEventsTotal.Inc()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitted[name] {
		return
	}
	w.pending[name] = time.Now()
}

// flushSettled submits every candidate that has been quiet long enough.
func (w *InboxWatcher) flushSettled() {
	now := time.Now()

	w.mu.Lock()
	var ready []string
	for name, last := range w.pending {
		if now.Sub(last) >= w.settle {
			ready = append(ready, name)
			delete(w.pending, name)
		}
	}
	w.mu.Unlock()

	for _, name := range ready {
		path := filepath.Join(w.dir, name)
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			// Stray file or a directory removed before it settled
			if w.metrics != nil {
				w.metrics.WatcherDroppedTotal.Inc()
			}
			w.log.Warn("Dropping inbox candidate").Str("name", name).Send()
			continue
		}

		w.mu.Lock()
		w.submitted[name] = true
		w.mu.Unlock()

		if w.metrics != nil {
			w.metrics.WatcherDepositsTotal.Inc()
		}
		w.log.Info("Package settled").Str("deposit_id", name).Send()
		w.submit(name, path)
	}
}

func firstSeparator(path string) int {
	for i := 0; i < len(path); i++ {
		if os.IsPathSeparator(path[i]) {
			return i
		}
	}
	return -1
}
