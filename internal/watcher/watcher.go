// Package watcher reports changes to a fixed set of files, debounced so an
// editor's save burst triggers one rebuild.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/alnah/go-latexcompile/internal/ctxlog"
)

// DefaultDelay is the quiet period before a batch of changes is reported.
const DefaultDelay = 200 * time.Millisecond

// ErrClosed reports that the underlying fsnotify watcher shut down.
var ErrClosed = errors.New("watcher: closed")

// relevantOps are the operations that can change a file's content. Chmod is
// ignored; editors and indexers touch permissions constantly.
const relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove

// ChangeHandler receives the sorted absolute paths that changed.
type ChangeHandler func(ctx context.Context, changed []string)

// Watcher watches the parent directories of its files, since many editors
// save by writing a new file and renaming it over the old one.
type Watcher struct {
	fs    *fsnotify.Watcher
	files map[string]bool
	delay time.Duration
}

// New starts watching paths. delay <= 0 selects DefaultDelay.
func New(paths []string, delay time.Duration) (*Watcher, error) {
	if delay <= 0 {
		delay = DefaultDelay
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}

	w := &Watcher{fs: fw, files: make(map[string]bool, len(paths)), delay: delay}
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("watcher: %s: %w", p, err)
		}
		w.files[abs] = true

		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("watcher: watching %s: %w", dir, err)
		}
		dirs[dir] = true
	}
	return w, nil
}

// Run blocks, calling onChange after each quiet period that followed at
// least one change. Returns nil when ctx ends.
func (w *Watcher) Run(ctx context.Context, onChange ChangeHandler) error {
	logger := ctxlog.FromContext(ctx)

	pending := make(map[string]bool)
	timer := time.NewTimer(w.delay)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return ErrClosed
			}
			if ev.Op&relevantOps == 0 || !w.files[filepath.Clean(ev.Name)] {
				continue
			}
			logger.Debug("file changed", "path", ev.Name, "op", ev.Op.String())
			pending[filepath.Clean(ev.Name)] = true
			timer.Reset(w.delay)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return ErrClosed
			}
			logger.Warn("file watcher error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			slices.Sort(changed)
			clear(pending)
			onChange(ctx, changed)
		}
	}
}

// Close releases the underlying watches.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
