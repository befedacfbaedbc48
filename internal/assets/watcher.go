package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"page-server/internal/logging"
	"page-server/internal/metrics"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
)

// Watcher rebuilds assets when the source or public trees change. Events
// are coalesced: the first event after a rebuild opens a window of length
// delay, and one rebuild runs when the window closes.
type Watcher struct {
	opts     BuildOptions
	store    *Store
	delay    time.Duration
	clock    clockwork.Clock
	onChange func(*Manifest)

	fsw      *fsnotify.Watcher
	stopChan chan struct{}
	done     chan struct{}
}

// NewWatcher creates a watcher that swaps rebuilt manifests into store and
// then calls onChange, which may be nil.
func NewWatcher(opts BuildOptions, store *Store, delay time.Duration, clock clockwork.Clock, onChange func(*Manifest)) *Watcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Watcher{
		opts:     opts,
		store:    store,
		delay:    delay,
		clock:    clock,
		onChange: onChange,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start registers every directory of the source and public trees and
// begins processing events.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.WatcherErrors.Inc()
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.fsw = fsw

	watchCount := 0
	for _, dir := range []string{w.opts.SourceDir, w.opts.PublicDir} {
		if dir == "" {
			continue
		}
		watchCount += w.addDirectories(dir)
	}
	metrics.WatchedDirectories.Set(float64(watchCount))
	logging.Debug("Asset watcher started, watching %d directories", watchCount)

	go w.loop()
	return nil
}

// Stop ends event processing and waits for an in-progress rebuild to finish.
func (w *Watcher) Stop() {
	close(w.stopChan)
	<-w.done
}

// addDirectories adds root and every non-hidden directory below it.
func (w *Watcher) addDirectories(root string) int {
	watchCount := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && hiddenName(d.Name()) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			logging.Warn("failed to add path to watcher %s: %v", path, addErr)
			metrics.WatcherErrors.Inc()
			return nil
		}
		watchCount++
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Error("failed to walk %s for watcher: %v", root, err)
		metrics.WatcherErrors.Inc()
	}
	return watchCount
}

func (w *Watcher) loop() {
	defer close(w.done)
	defer func() {
		if err := w.fsw.Close(); err != nil {
			logging.Error("failed to close file watcher: %v", err)
		}
	}()

	var (
		timer   clockwork.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.handleEvent(event) || pending != nil {
				continue
			}
			timer = w.clock.NewTimer(w.delay)
			pending = timer.Chan()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)
			metrics.WatcherErrors.Inc()

		case <-pending:
			timer, pending = nil, nil
			w.rebuild()

		case <-w.stopChan:
			return
		}
	}
}

// handleEvent records event and reports whether it should trigger a rebuild.
// New directories are added to the watcher before the rebuild is scheduled.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if hiddenName(filepath.Base(event.Name)) {
		return false
	}

	op := eventType(event.Op)
	if op == "chmod" || op == "unknown" {
		return false
	}
	metrics.WatcherEventsTotal.WithLabelValues(op).Inc()

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			added := w.addDirectories(event.Name)
			metrics.WatchedDirectories.Add(float64(added))
			logging.Debug("Added new directory to watcher: %s", event.Name)
		}
	}
	return true
}

// hiddenName reports whether a file or directory name is ignored by the
// watcher. WellKnownDir is watched because the builder copies it.
func hiddenName(name string) bool {
	return strings.HasPrefix(name, ".") && name != WellKnownDir
}

// eventType returns a string representation of the fsnotify operation
func eventType(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "create"
	case op&fsnotify.Write != 0:
		return "write"
	case op&fsnotify.Remove != 0:
		return "remove"
	case op&fsnotify.Rename != 0:
		return "rename"
	case op&fsnotify.Chmod != 0:
		return "chmod"
	default:
		return "unknown"
	}
}

func (w *Watcher) rebuild() {
	m, err := Build(w.opts)
	if err != nil {
		logging.Error("Asset rebuild failed: %v", err)
		return
	}
	w.store.Swap(m)
	logging.Info("Assets rebuilt (version %s)", m.Version)

	if w.onChange != nil {
		w.onChange(m)
	}
}
