// SPDX-License-Identifier: MPL-2.0

// Package source models the local files a build operates on.
//
// A Source is a readable, writable, locatable byte container. It lives either
// on disk (File) or in memory (Virtual). Every Source knows its root, so it can
// report a "./"-prefixed path relative to that root, and it may carry an alias:
// a second relative path, set once when the file is copied under a
// content-hashed name, that external references resolve to instead.
package source

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// HashLength is the number of hex characters kept from a content digest.
const HashLength = 8

var (
	// ErrAliasSet is returned when an alias is assigned to a Source that already has one.
	ErrAliasSet = errors.New("alias already set")

	// ErrLocked is returned when writing to a Source that belongs to the input tree.
	ErrLocked = errors.New("source is locked")
)

// Source is a file-like entity rooted in a directory.
type Source interface {
	// Path returns the absolute slash-separated path of the file.
	Path() string
	// Root returns the absolute slash-separated path of the root directory.
	Root() string
	// RelativePath returns Path relative to Root, always prefixed with "./".
	RelativePath() string
	// Alias returns the aliased relative path, or "" if none was set.
	Alias() string
	// SetAlias assigns the alias. It fails with ErrAliasSet on a second call.
	SetAlias(alias string) error
	// URL returns the file URL of Path.
	URL() *url.URL
	// Extension returns the file extension including the leading dot.
	Extension() string
	ReadBytes() ([]byte, error)
	Read() (string, error)
	Write(data []byte) error
	// ContentHash returns the first HashLength hex characters of the SHA-256 digest of the content.
	ContentHash() (string, error)
}

// identity holds the location and alias shared by every Source variant.
type identity struct {
	path string
	root string

	mu    sync.RWMutex
	alias string
}

func (id *identity) init(p, root string) {
	root = normalizeRoot(root)
	p = filepath.ToSlash(p)
	if !isAbs(p) {
		p = path.Join(root, p)
	}
	id.path = path.Clean(p)
	id.root = root
}

func (id *identity) Path() string { return id.path }

func (id *identity) Root() string { return id.root }

func (id *identity) RelativePath() string {
	return relativeTo(id.root, id.path)
}

func (id *identity) Alias() string {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.alias
}

func (id *identity) SetAlias(alias string) error {
	id.mu.Lock()
	defer id.mu.Unlock()

	if id.alias != "" {
		return ErrAliasSet
	}
	id.alias = ensureDotSlash(alias)
	return nil
}

func (id *identity) URL() *url.URL { return FileURL(id.path) }

func (id *identity) Extension() string { return path.Ext(id.path) }

// location is where the bytes physically live: the aliased path once set.
func (id *identity) location() string {
	if a := id.Alias(); a != "" {
		return path.Join(id.root, a)
	}
	return id.path
}

// AliasURL returns the file URL of the aliased location of s, or nil when s has no alias.
func AliasURL(s Source) *url.URL {
	a := s.Alias()
	if a == "" {
		return nil
	}
	return FileURL(path.Join(s.Root(), a))
}

// ContentHash returns the first HashLength hex characters of the SHA-256 digest of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:HashLength]
}

// HashedPath inserts ".<hash>" before the extension of rel.
//
//	HashedPath("./src/app.tsx", "d9df1e95") == "./src/app.d9df1e95.tsx"
func HashedPath(rel, hash string) string {
	ext := path.Ext(rel)
	return strings.TrimSuffix(rel, ext) + "." + hash + ext
}

// FileURL returns the file URL for an absolute path.
func FileURL(p string) *url.URL {
	p = filepath.ToSlash(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return &url.URL{Scheme: "file", Path: p}
}

// PathFromURL returns the slash-separated path of a file URL, or "" if u is not one.
func PathFromURL(u *url.URL) string {
	if u == nil || u.Scheme != "file" {
		return ""
	}
	p := u.Path
	// file:///C:/x on Windows
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return p
}

func normalizeRoot(root string) string {
	if strings.HasPrefix(root, "file:") {
		if u, err := url.Parse(root); err == nil {
			root = PathFromURL(u)
		}
	}
	return path.Clean(filepath.ToSlash(root))
}

func relativeTo(root, p string) string {
	if rel, ok := strings.CutPrefix(p, strings.TrimSuffix(root, "/")+"/"); ok {
		return "./" + rel
	}
	return ensureDotSlash(p)
}

func ensureDotSlash(p string) string {
	p = filepath.ToSlash(p)
	if strings.HasPrefix(p, "./") || strings.HasPrefix(p, "../") {
		return p
	}
	return "./" + strings.TrimPrefix(p, "/")
}

func isAbs(p string) bool {
	return strings.HasPrefix(p, "/") || filepath.IsAbs(filepath.FromSlash(p))
}
