// Package watch reports batches of changed Markdown documents under a
// directory tree.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pbaille/vrdx/internal/discovery"
	"github.com/pbaille/vrdx/internal/logging"
)

const defaultDebounce = 200 * time.Millisecond

// Handler receives the sorted, de-duplicated paths changed during one
// debounce window. Calls never overlap.
type Handler func(ctx context.Context, paths []string)

// Options configures a Watcher
type Options struct {
	Discovery discovery.Options
	Debounce  time.Duration
	Logger    logging.Logger
}

// Watcher follows every non-ignored directory under a root
type Watcher struct {
	root    string
	opts    Options
	handler Handler
	fsw     *fsnotify.Watcher
	logger  logging.Logger
}

// New registers root and its subdirectories. Close releases the watches when
// Run is never called.
func New(root string, opts Options, handler Handler) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("watch: handler cannot be nil")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOp()
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		root:    abs,
		opts:    opts,
		handler: handler,
		fsw:     fsw,
		logger:  logging.WithFields(opts.Logger, map[string]any{"root": abs}),
	}
	if err := w.addTree(abs); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.opts.Discovery.Ignored(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run delivers batches to the handler until ctx is cancelled, then flushes
// the pending batch and closes the watcher
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	pending := map[string]struct{}{}
	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		slices.Sort(paths)
		clear(pending)
		w.logger.Debug("watch.flush", "paths", len(paths))
		w.handler(ctx, paths)
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				flush()
				return nil
			}
			if w.track(event) {
				pending[event.Name] = struct{}{}
				timer.Reset(w.opts.Debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				flush()
				return nil
			}
			w.logger.Warn("watch.error", "error", err)

		case <-timer.C:
			flush()
		}
	}
}

// track reports whether event concerns a document. New directories are
// added to the watch set.
func (w *Watcher) track(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.opts.Discovery.Ignored(info.Name()) {
				if err := w.addTree(event.Name); err != nil {
					w.logger.Warn("watch.add.failed", "path", event.Name, "error", err)
				}
			}
			return false
		}
	}
	if event.Op == fsnotify.Chmod {
		return false
	}
	return w.opts.Discovery.Matches(event.Name)
}
