// Package watch re-runs a callback when watched files change.
//
// Events arriving within the debounce window are coalesced so the callback
// fires once with every changed path.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before the callback fires.
const DefaultDebounce = 300 * time.Millisecond

// Opts configures a watch loop.
type Opts struct {
	// Paths are files or directories to watch. Files are watched through
	// their parent directory so editor rename-on-save is seen.
	Paths []string
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
	// OnChange receives the sorted changed paths. Errors are logged and the
	// loop continues.
	OnChange func(ctx context.Context, changed []string) error
	// Logger for debug and error output.
	Logger *slog.Logger
}

// Watcher watches a fixed set of paths.
type Watcher struct {
	opts  Opts
	fsw   *fsnotify.Watcher
	files map[string]bool
	dirs  []string
}

// New registers opts.Paths with fsnotify.
func New(opts Opts) (*Watcher, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{opts: opts, fsw: fsw, files: make(map[string]bool)}

	added := make(map[string]bool)

	for _, p := range opts.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("resolving %s: %w", p, err)
		}

		dir := abs

		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			w.files[abs] = true
			dir = filepath.Dir(abs)
		} else {
			w.dirs = append(w.dirs, abs)
		}

		if added[dir] {
			continue
		}

		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}

		added[dir] = true
	}

	return w, nil
}

// relevant reports whether an event path is one of the watched files or
// inside a watched directory.
func (w *Watcher) relevant(name string) bool {
	if w.files[name] {
		return true
	}

	for _, d := range w.dirs {
		if strings.HasPrefix(name, d+string(os.PathSeparator)) {
			return true
		}
	}

	return false
}

// Run blocks until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		fire    = make(chan struct{}, 1)
	)

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watcher event channel closed")
			}

			if !w.relevant(evt.Name) || (evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write)) {
				continue
			}

			w.opts.Logger.Debug("change detected", "path", evt.Name, "op", evt.Op.String())

			mu.Lock()
			pending[evt.Name] = struct{}{}

			if timer == nil {
				timer = time.AfterFunc(w.opts.Debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(w.opts.Debounce)
			}
			mu.Unlock()

		case <-fire:
			mu.Lock()
			changed := slices.Sorted(maps.Keys(pending))
			clear(pending)
			mu.Unlock()

			if len(changed) == 0 || w.opts.OnChange == nil {
				continue
			}

			if err := w.opts.OnChange(ctx, changed); err != nil {
				w.opts.Logger.Error("re-run failed", "err", err)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}

			w.opts.Logger.Warn("watch error", "err", err)
		}
	}
}
