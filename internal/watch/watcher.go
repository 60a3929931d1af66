// Package watch re-runs a scan when project sources or manifests change.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/panbanda/unused-cleaner/internal/scanner"
	"github.com/panbanda/unused-cleaner/pkg/config"
)

// DefaultDebounce is how long a change must settle before a rescan.
const DefaultDebounce = 500 * time.Millisecond

// triggers are non-source files whose changes affect dependency results.
var triggers = map[string]bool{
	"package.json":      true,
	"package-lock.json": true,
	"yarn.lock":         true,
	"pnpm-lock.yaml":    true,
}

// Watcher monitors a project tree and batches changes.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    *config.Config
	scanner   *scanner.Scanner
	debounce  time.Duration
	onChange  func(changed []string)
	onError   func(err error)

	mu      sync.Mutex
	pending map[string]time.Time
}

// NewWatcher creates a watcher for the project at root. onChange receives
// the sorted root-relative paths that changed since the last batch.
func NewWatcher(root string, cfg *config.Config, debounce time.Duration, onChange func(changed []string)) (*Watcher, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	sc, err := scanner.NewScanner(cfg, root)
	if err != nil {
		return nil, err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		config:    cfg,
		scanner:   sc,
		debounce:  debounce,
		onChange:  onChange,
		onError:   func(error) {},
		pending:   make(map[string]time.Time),
	}, nil
}

// OnError sets a handler for watch errors. They do not stop the watcher.
func (w *Watcher) OnError(fn func(err error)) {
	w.onError = fn
}

// addTree registers dir and every non-excluded directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.scanner.Root() && w.excludedDir(path) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) excludedDir(path string) bool {
	// A file inside the directory is excluded iff the directory is.
	return w.scanner.ExcludedSource(w.scanner.Rel(filepath.Join(path, "x.js")))
}

// Start watches until ctx is cancelled. Returns ctx.Err() on cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.scanner.Root()); err != nil {
		return err
	}

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.onError(err)
		}
	}
}

// handleEvent records relevant changes. New directories are watched too.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.excludedDir(event.Name) {
				if err := w.addTree(event.Name); err != nil {
					w.onError(err)
				}
			}
			return
		}
	}

	rel := w.scanner.Rel(event.Name)
	if !w.relevant(rel) {
		return
	}

	w.mu.Lock()
	w.pending[rel] = time.Now()
	w.mu.Unlock()
}

// relevant reports whether a change to rel can alter the analysis.
func (w *Watcher) relevant(rel string) bool {
	if triggers[rel] {
		return true
	}
	return w.config.HasExtension(rel) && !w.scanner.ExcludedSource(rel)
}

// processDebounced flushes pending changes after the debounce period.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ready := w.takeReady(time.Now()); len(ready) > 0 && w.onChange != nil {
				w.onChange(ready)
			}
		}
	}
}

// takeReady returns the changes that have been stable for the debounce
// period. A batch is only released once every pending path has settled.
func (w *Watcher) takeReady(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.pending) == 0 {
		return nil
	}
	for _, lastMod := range w.pending {
		if now.Sub(lastMod) < w.debounce {
			return nil
		}
	}

	ready := make([]string, 0, len(w.pending))
	for path := range w.pending {
		ready = append(ready, path)
	}
	sort.Strings(ready)
	w.pending = make(map[string]time.Time)
	return ready
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedDirs returns the directories being watched.
func (w *Watcher) WatchedDirs() []string {
	return w.fsWatcher.WatchList()
}
