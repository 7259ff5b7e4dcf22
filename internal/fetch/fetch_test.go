// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mesozoic/mesozoic/pkg/load"
)

func newModuleServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/mod.js", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/javascript")
		w.Header().Set("X-User-Agent", r.UserAgent())
		_, _ = w.Write([]byte("export default 1;"))
	})
	mux.HandleFunc("/old.js", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/mod.js", http.StatusFound)
	})
	mux.HandleFunc("/missing.js", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "not found", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_CachesInMemory(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := newModuleServer(t, &hits)

	c, err := New(WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}

	for range 3 {
		f, err := c.Fetch(context.Background(), srv.URL+"/mod.js", load.PolicyDefault)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if f.Status != http.StatusOK {
			t.Fatalf("Status = %d", f.Status)
		}
		if string(f.Body) != "export default 1;" {
			t.Errorf("Body = %q", f.Body)
		}
		if got := f.Headers["content-type"]; got != "application/javascript" {
			t.Errorf("content-type = %q", got)
		}
		if got := f.Headers["x-user-agent"]; got != load.UserAgent {
			t.Errorf("user agent = %q, want %q", got, load.UserAgent)
		}
	}

	if got := hits.Load(); got != 1 {
		t.Errorf("expected 1 request, got %d", got)
	}
}

func TestFetch_ReloadBypassesCache(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := newModuleServer(t, &hits)

	c, err := New(WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}

	for _, p := range []load.Policy{load.PolicyDefault, load.PolicyReload, load.PolicyReload} {
		if _, err := c.Fetch(context.Background(), srv.URL+"/mod.js", p); err != nil {
			t.Fatal(err)
		}
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("expected 3 requests, got %d", got)
	}
}

func TestFetch_NonOKIsNotCached(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := newModuleServer(t, &hits)

	c, err := New(WithHTTPClient(srv.Client()), WithCacheDir(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}

	for range 2 {
		f, err := c.Fetch(context.Background(), srv.URL+"/missing.js", load.PolicyDefault)
		if err != nil {
			t.Fatal(err)
		}
		if f.Status != http.StatusNotFound {
			t.Errorf("Status = %d, want 404", f.Status)
		}
		if f.Body != nil {
			t.Errorf("Body = %q, want nil", f.Body)
		}
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("expected 2 requests, got %d", got)
	}
}

func TestFetch_OversizedBodyIsRejected(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := newModuleServer(t, &hits)
	dir := t.TempDir()

	c, err := New(WithHTTPClient(srv.Client()), WithCacheDir(dir))
	if err != nil {
		t.Fatal(err)
	}
	c.maxBody = int64(len("export default 1;")) - 1

	for range 2 {
		f, err := c.Fetch(context.Background(), srv.URL+"/mod.js", load.PolicyDefault)
		if !errors.Is(err, ErrBodyTooLarge) {
			t.Fatalf("Fetch() = %+v, %v, want ErrBodyTooLarge", f, err)
		}
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("expected 2 requests, got %d", got)
	}
	entries, err := filepath.Glob(filepath.Join(dir, "*"+entryExt))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("oversized body was cached: %v", entries)
	}

	c.maxBody = int64(len("export default 1;"))
	f, err := c.Fetch(context.Background(), srv.URL+"/mod.js", load.PolicyDefault)
	if err != nil {
		t.Fatalf("Fetch() at the limit error = %v", err)
	}
	if string(f.Body) != "export default 1;" {
		t.Errorf("Body = %q", f.Body)
	}
}

func TestFetch_RecordsFinalURL(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := newModuleServer(t, &hits)

	c, err := New(WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}

	f, err := c.Fetch(context.Background(), srv.URL+"/old.js", load.PolicyDefault)
	if err != nil {
		t.Fatal(err)
	}
	if want := srv.URL + "/mod.js"; f.URL != want {
		t.Errorf("URL = %q, want %q", f.URL, want)
	}
}

func TestFetch_DiskCacheSurvivesClient(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := newModuleServer(t, &hits)
	dir := t.TempDir()
	target := srv.URL + "/mod.js"

	first, err := New(WithHTTPClient(srv.Client()), WithCacheDir(dir))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := first.Fetch(context.Background(), target, load.PolicyDefault); err != nil {
		t.Fatal(err)
	}

	entries, err := filepath.Glob(filepath.Join(dir, "*"+entryExt))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 cache entry, got %v", entries)
	}
	if name := filepath.Base(entries[0]); len(strings.TrimSuffix(name, entryExt)) != 64 {
		t.Errorf("entry name = %q, want a 64 character digest", name)
	}

	srv.Close()

	second, err := New(WithCacheDir(dir), WithMemoryEntries(0))
	if err != nil {
		t.Fatal(err)
	}
	f, err := second.Fetch(context.Background(), target, load.PolicyDefault)
	if err != nil {
		t.Fatalf("Fetch() from disk error = %v", err)
	}
	if string(f.Body) != "export default 1;" || f.URL != target {
		t.Errorf("unexpected cached response %+v", f)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("expected 1 request, got %d", got)
	}
}

func TestFetch_CorruptEntryIsIgnored(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := newModuleServer(t, &hits)
	dir := t.TempDir()
	target := srv.URL + "/mod.js"

	store := &diskStore{dir: dir}
	if err := os.WriteFile(store.entryPath(target), []byte("not cbor"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := New(WithHTTPClient(srv.Client()), WithCacheDir(dir))
	if err != nil {
		t.Fatal(err)
	}
	f, err := c.Fetch(context.Background(), target, load.PolicyDefault)
	if err != nil {
		t.Fatal(err)
	}
	if string(f.Body) != "export default 1;" {
		t.Errorf("Body = %q", f.Body)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("expected 1 request, got %d", got)
	}
}

func TestDefaultCacheDirWith(t *testing.T) {
	t.Parallel()

	dir, err := DefaultCacheDirWith(func(key string) string {
		if key == CacheDirEnv {
			return "/tmp/mesozoic-cache"
		}
		return ""
	})
	if err != nil {
		t.Fatal(err)
	}
	if dir != "/tmp/mesozoic-cache" {
		t.Errorf("expected /tmp/mesozoic-cache, got %q", dir)
	}
}
