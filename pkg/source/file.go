// SPDX-License-Identifier: MPL-2.0

package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
)

// File is a Source stored on disk.
//
// Files gathered from the input tree are locked: they can be read and copied
// but never written. Copies are unlocked.
type File struct {
	identity
	locked atomic.Bool
}

// NewFile returns a locked File. A relative path is joined to root; root may be a file URL.
func NewFile(path, root string) *File {
	f := &File{}
	f.init(path, root)
	f.locked.Store(true)
	return f
}

// Unlock allows writes to the file and returns it.
func (f *File) Unlock() *File {
	f.locked.Store(false)
	return f
}

// Locked reports whether the file rejects writes.
func (f *File) Locked() bool { return f.locked.Load() }

func (f *File) ReadBytes() ([]byte, error) {
	data, err := os.ReadFile(filepath.FromSlash(f.location()))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.RelativePath(), err)
	}
	return data, nil
}

func (f *File) Read() (string, error) {
	data, err := f.ReadBytes()
	return string(data), err
}

func (f *File) Write(data []byte) error {
	if f.Locked() {
		return fmt.Errorf("cannot write %s: %w", f.path, ErrLocked)
	}
	loc := filepath.FromSlash(f.location())
	if err := os.MkdirAll(filepath.Dir(loc), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", f.RelativePath(), err)
	}
	return os.WriteFile(loc, data, 0o644)
}

func (f *File) ContentHash() (string, error) {
	data, err := f.ReadBytes()
	if err != nil {
		return "", err
	}
	return ContentHash(data), nil
}

// Remove deletes the file from disk. Locked files cannot be removed.
func (f *File) Remove() error {
	if f.Locked() {
		return fmt.Errorf("cannot remove %s: %w", f.path, ErrLocked)
	}
	return os.Remove(filepath.FromSlash(f.location()))
}
