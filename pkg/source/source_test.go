// SPDX-License-Identifier: MPL-2.0

package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mesozoic/mesozoic/pkg/patterns"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestContentHash(t *testing.T) {
	t.Parallel()

	// sha256("hello") = 2cf24dba5fb0a30e...
	if got := ContentHash([]byte("hello")); got != "2cf24dba" {
		t.Errorf("ContentHash() = %q, want %q", got, "2cf24dba")
	}
}

func TestHashedPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rel  string
		want string
	}{
		{"./src/app.tsx", "./src/app.d9df1e95.tsx"},
		{"./styles/main.css", "./styles/main.d9df1e95.css"},
		{"./LICENSE", "./LICENSE.d9df1e95"},
	}
	for _, tt := range tests {
		if got := HashedPath(tt.rel, "d9df1e95"); got != tt.want {
			t.Errorf("HashedPath(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}

func TestFileIdentity(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{"src/app.tsx": "export default 1;\n"})

	f := NewFile("./src/app.tsx", root)
	rootSlash := filepath.ToSlash(root)

	if f.Root() != rootSlash {
		t.Errorf("Root() = %q, want %q", f.Root(), rootSlash)
	}
	if f.Path() != rootSlash+"/src/app.tsx" {
		t.Errorf("Path() = %q", f.Path())
	}
	if f.RelativePath() != "./src/app.tsx" {
		t.Errorf("RelativePath() = %q", f.RelativePath())
	}
	if f.Extension() != ".tsx" {
		t.Errorf("Extension() = %q", f.Extension())
	}
	if f.URL().Scheme != "file" || PathFromURL(f.URL()) != f.Path() {
		t.Errorf("URL() = %v", f.URL())
	}
	if !f.Locked() {
		t.Error("new file is not locked")
	}
	if err := f.Write([]byte("x")); !errors.Is(err, ErrLocked) {
		t.Errorf("Write() on locked file error = %v, want ErrLocked", err)
	}

	text, err := f.Read()
	if err != nil {
		t.Fatal(err)
	}
	if text != "export default 1;\n" {
		t.Errorf("Read() = %q", text)
	}
}

func TestRootAsFileURL(t *testing.T) {
	t.Parallel()

	f := NewFile("/app/src/a.ts", "file:///app/")
	if f.Root() != "/app" {
		t.Errorf("Root() = %q, want /app", f.Root())
	}
	if f.RelativePath() != "./src/a.ts" {
		t.Errorf("RelativePath() = %q", f.RelativePath())
	}
	if got := f.URL().String(); got != "file:///app/src/a.ts" {
		t.Errorf("URL() = %q", got)
	}
}

func TestRelativePathSiblingPrefix(t *testing.T) {
	t.Parallel()

	v := NewVirtual("/application/x.ts", "/app", nil)
	if v.RelativePath() == "./lication/x.ts" {
		t.Fatal("root prefix matched a sibling directory")
	}
}

func TestSetAliasOnce(t *testing.T) {
	t.Parallel()

	v := NewVirtual("./a.js", "/root", []byte("a"))
	if err := v.SetAlias("./a.1234.js"); err != nil {
		t.Fatal(err)
	}
	if err := v.SetAlias("./a.5678.js"); !errors.Is(err, ErrAliasSet) {
		t.Fatalf("second SetAlias() error = %v, want ErrAliasSet", err)
	}
	if v.Alias() != "./a.1234.js" {
		t.Errorf("Alias() = %q", v.Alias())
	}
}

func TestVirtualReadWrite(t *testing.T) {
	t.Parallel()

	v := NewVirtual("mod.js", "/out", []byte("one"))
	if v.Path() != "/out/mod.js" {
		t.Errorf("Path() = %q", v.Path())
	}
	if err := v.Write([]byte("two")); err != nil {
		t.Fatal(err)
	}
	text, _ := v.Read()
	if text != "two" {
		t.Errorf("Read() = %q", text)
	}
	hash, _ := v.ContentHash()
	if hash != ContentHash([]byte("two")) {
		t.Errorf("ContentHash() = %q", hash)
	}
}

func TestCopyTo(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, map[string]string{"src/app.tsx": "app"})

	orig := NewFile("./src/app.tsx", src)
	copied, err := CopyTo(orig, dst)
	if err != nil {
		t.Fatal(err)
	}
	if copied.Root() != filepath.ToSlash(dst) {
		t.Errorf("Root() = %q", copied.Root())
	}
	if copied.RelativePath() != orig.RelativePath() {
		t.Errorf("RelativePath() = %q", copied.RelativePath())
	}
	if copied.Locked() {
		t.Error("copied file is locked")
	}

	h1, _ := orig.ContentHash()
	h2, _ := copied.ContentHash()
	if h1 != h2 {
		t.Errorf("content hash changed: %s != %s", h1, h2)
	}
	if err := copied.Remove(); err != nil {
		t.Errorf("Remove() error = %v", err)
	}

	if _, err := CopyTo(orig, src); err == nil {
		t.Error("CopyTo() onto itself succeeded")
	}
}

func TestCopyToHashed(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, map[string]string{"src/app.tsx": "hello"})

	copied, err := CopyToHashed(NewFile("./src/app.tsx", src), dst)
	if err != nil {
		t.Fatal(err)
	}
	if copied.RelativePath() != "./src/app.tsx" {
		t.Errorf("RelativePath() = %q", copied.RelativePath())
	}
	if copied.Alias() != "./src/app.2cf24dba.tsx" {
		t.Errorf("Alias() = %q", copied.Alias())
	}
	if _, err := os.Stat(filepath.Join(dst, "src", "app.2cf24dba.tsx")); err != nil {
		t.Errorf("hashed file not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "src", "app.tsx")); !os.IsNotExist(err) {
		t.Errorf("unhashed file written: %v", err)
	}
	text, err := copied.Read()
	if err != nil || text != "hello" {
		t.Errorf("Read() = %q, %v", text, err)
	}
	if got := OutputPath(copied); got != copied.Alias() {
		t.Errorf("OutputPath() = %q", got)
	}
}

func TestGatherAndSet(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"client.tsx":        "c",
		"server.tsx":        "s",
		"private.txt":       "p",
		"public/a.css":      "a",
		"public/img/b.png":  "b",
		"src/app.tsx":       "app",
		"src/components.ts": "cmp",
	})

	set, err := Gather(context.Background(), root, patterns.New("./private.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if set.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", set.Len())
	}
	if _, ok := set.FindByPath("./private.txt"); ok {
		t.Error("ignored file gathered")
	}

	public, err := set.Matches(patterns.New("./public/**"))
	if err != nil {
		t.Fatal(err)
	}
	if public.Len() != 2 {
		t.Errorf("Matches(public) Len() = %d, want 2", public.Len())
	}

	app, ok := set.FindByPath("src/app.tsx")
	if !ok {
		t.Fatal("FindByPath() missed src/app.tsx")
	}
	byURL, ok := set.FindByURL(app.URL().String())
	if !ok || byURL != app {
		t.Error("FindByURL() did not return the same source")
	}
	if _, err := set.Get("./missing.ts"); err == nil {
		t.Error("Get() on missing path succeeded")
	}
}

func TestSetFindsAlias(t *testing.T) {
	t.Parallel()

	v := NewVirtual("./src/app.tsx", "/app", nil)
	_ = v.SetAlias("./src/app.abc123.tsx")
	set := NewSet(v)

	if got, ok := set.FindByPath("./src/app.abc123.tsx"); !ok || got != v {
		t.Error("FindByPath() by alias failed")
	}
	if got, ok := set.FindByURL("file:///app/src/app.abc123.tsx"); !ok || got != v {
		t.Error("FindByURL() by alias URL failed")
	}
}

func TestGatherMissingRoot(t *testing.T) {
	t.Parallel()

	if _, err := Gather(context.Background(), filepath.Join(t.TempDir(), "nope"), nil); err == nil {
		t.Error("Gather() on missing root succeeded")
	}
}
