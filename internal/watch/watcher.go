// SPDX-License-Identifier: MPL-2.0

// Package watch rebuilds on source changes.
//
// A Watcher monitors a source root and invokes a callback after a debounce
// period. Events within the debounce window are coalesced so the callback
// fires once with the full set of changed paths.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/mesozoic/mesozoic/pkg/patterns"
)

// DefaultDebounce is the quiet period used when Config.Debounce is unset.
const DefaultDebounce = 300 * time.Millisecond

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("watch: Run called more than once")

// defaultIgnores are never watched, in addition to Config.Ignore.
var defaultIgnores = []string{
	"./.git/",
	"./node_modules/",
	"./**/*.swp",
	"./**/*~",
	"./**/.DS_Store",
}

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Root is the directory to watch recursively.
		Root string
		// Ignore matches "./"-relative paths that never trigger a rebuild,
		// typically the build's own ignore set including the output directory.
		Ignore *patterns.Set
		// Debounce is the quiet period after the last event before OnChange
		// fires. Zero uses DefaultDebounce.
		Debounce time.Duration
		// OnChange receives the "./"-relative paths that changed.
		OnChange func(ctx context.Context, changed []string) error
		Logger   *log.Logger
	}

	// Watcher monitors a source root. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		defaults *patterns.Set
		logger   *log.Logger
		debounce time.Duration
		root     string
		started  atomic.Bool
	}
)

// New creates a Watcher and registers every non-ignored directory below Root.
func New(cfg Config) (*Watcher, error) {
	if cfg.Root == "" {
		return nil, errors.New("watch: root is required")
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", root)
	}

	defaults := patterns.New(defaultIgnores...)
	if err := defaults.Build(); err != nil {
		return nil, err
	}
	if cfg.Ignore != nil {
		if err := cfg.Ignore.Build(); err != nil {
			return nil, err
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		defaults: defaults,
		logger:   cfg.Logger,
		debounce: cfg.Debounce,
		root:     root,
	}
	if w.logger == nil {
		w.logger = log.New(io.Discard)
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}

	if err := w.addDirectories(); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes filesystem events until ctx is cancelled. It returns nil on
// cancellation and an error when the watcher breaks. Callback errors are
// logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire runs from time.AfterFunc. A run still in progress reschedules
	// instead of overlapping, so pending paths are never dropped.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("previous rebuild still running, deferring")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		w.logger.Info("change detected", "files", len(changed))
		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("rebuild failed", "err", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("closing watcher", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed unexpectedly")
			}
			rel := w.relative(evt.Name)
			if w.isIgnored(rel) {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name, rel)
			}

			mu.Lock()
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

// addDirectories registers every non-ignored directory below the root.
// Unreadable directories are skipped.
func (w *Watcher) addDirectories() error {
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("not watching", "path", path, "err", walkErr)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.isIgnoredDir(w.relative(path)) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk %s: %w", w.root, err)
	}
	return nil
}

// maybeAddDir extends the watch to a directory created after startup.
func (w *Watcher) maybeAddDir(path, rel string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || w.isIgnoredDir(rel) {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		w.logger.Warn("watching new directory", "path", path, "err", err)
	}
}

// relative returns path as a "./"-prefixed slash path below the root.
func (w *Watcher) relative(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return "./" + filepath.ToSlash(rel)
}

func (w *Watcher) isIgnored(rel string) bool {
	if w.defaults.MustTest(rel) {
		return true
	}
	return w.cfg.Ignore != nil && w.cfg.Ignore.MustTest(rel)
}

// isIgnoredDir also matches directory patterns against the directory itself.
func (w *Watcher) isIgnoredDir(rel string) bool {
	return w.isIgnored(rel) || w.isIgnored(rel+"/")
}
