// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/mesozoic/mesozoic/pkg/patterns"
)

type recorder struct {
	mu      sync.Mutex
	calls   int
	changed []string
	fired   chan struct{}
}

func newRecorder() *recorder {
	return &recorder{fired: make(chan struct{}, 16)}
}

func (r *recorder) onChange(_ context.Context, changed []string) error {
	r.mu.Lock()
	r.calls++
	r.changed = append(r.changed, changed...)
	r.mu.Unlock()
	r.fired <- struct{}{}
	return nil
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

func (r *recorder) snapshot() (int, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls, slices.Clone(r.changed)
}

func start(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcherDebounce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec := newRecorder()
	w, err := New(Config{Root: dir, Debounce: 100 * time.Millisecond, OnChange: rec.onChange})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	start(t, w)

	for _, name := range []string{"a.ts", "b.ts", "c.ts"} {
		writeFile(t, filepath.Join(dir, name), "export {};")
		time.Sleep(10 * time.Millisecond)
	}

	rec.wait(t)
	time.Sleep(250 * time.Millisecond)

	calls, changed := rec.snapshot()
	if calls != 1 {
		t.Errorf("callback fired %d times, want 1", calls)
	}
	for _, want := range []string{"./a.ts", "./b.ts", "./c.ts"} {
		if !slices.Contains(changed, want) {
			t.Errorf("changed = %v, missing %q", changed, want)
		}
	}
}

func TestWatcherIgnore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "dist"), 0o755); err != nil {
		t.Fatal(err)
	}

	rec := newRecorder()
	w, err := New(Config{
		Root:     dir,
		Ignore:   patterns.New("./dist/", "./**/*.log"),
		Debounce: 50 * time.Millisecond,
		OnChange: rec.onChange,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	start(t, w)

	writeFile(t, filepath.Join(dir, "dist", "out.js"), "x")
	writeFile(t, filepath.Join(dir, "debug.log"), "x")
	writeFile(t, filepath.Join(dir, "app.ts~"), "x")
	time.Sleep(50 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "app.ts"), "x")

	rec.wait(t)
	_, changed := rec.snapshot()
	if !slices.Equal(changed, []string{"./app.ts"}) {
		t.Errorf("changed = %v, want [./app.ts]", changed)
	}
}

func TestWatcherNewDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec := newRecorder()
	w, err := New(Config{Root: dir, Debounce: 50 * time.Millisecond, OnChange: rec.onChange})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	start(t, w)

	sub := filepath.Join(dir, "src")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	rec.wait(t)

	// Give the watcher a moment to register the new directory.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(sub, "app.ts"), "x")

	deadline := time.After(5 * time.Second)
	for {
		_, changed := rec.snapshot()
		if slices.Contains(changed, "./src/app.ts") {
			return
		}
		select {
		case <-rec.fired:
		case <-deadline:
			t.Fatalf("no event for a file in a new directory, changed = %v", changed)
		}
	}
}

func TestWatcherRunTwice(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Root: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if err := w.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestNewErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "file.ts")
	writeFile(t, file, "x")

	for name, cfg := range map[string]Config{
		"empty root":     {},
		"missing root":   {Root: filepath.Join(dir, "missing")},
		"file root":      {Root: file},
		"invalid ignore": {Root: dir, Ignore: patterns.New("[")},
	} {
		if _, err := New(cfg); err == nil {
			t.Errorf("%s: New() succeeded", name)
		}
	}
}
