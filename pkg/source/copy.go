// SPDX-License-Identifier: MPL-2.0

package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mesozoic/mesozoic/pkg/patterns"
)

// CopyTo writes the content of src to destRoot/<relative path> and returns an
// unlocked File rooted at destRoot.
func CopyTo(src Source, destRoot string) (*File, error) {
	out := NewFile(src.RelativePath(), destRoot).Unlock()
	if out.Path() == src.Path() {
		return nil, fmt.Errorf("cannot copy a file to itself: %s", src.Path())
	}

	data, err := src.ReadBytes()
	if err != nil {
		return nil, err
	}
	if err := out.Write(data); err != nil {
		return nil, fmt.Errorf("failed to copy %s: %w", src.RelativePath(), err)
	}

	return out, nil
}

// CopyToHashed writes the content of src to destRoot under its hashed name.
// The returned File keeps the original relative path and carries the hashed
// relative path as its alias.
func CopyToHashed(src Source, destRoot string) (*File, error) {
	data, err := src.ReadBytes()
	if err != nil {
		return nil, err
	}

	rel := src.RelativePath()
	out := NewFile(rel, destRoot).Unlock()
	if err := out.SetAlias(HashedPath(rel, ContentHash(data))); err != nil {
		return nil, err
	}
	if out.location() == src.Path() {
		return nil, fmt.Errorf("cannot copy a file to itself: %s", src.Path())
	}
	if err := out.Write(data); err != nil {
		return nil, fmt.Errorf("failed to copy %s: %w", rel, err)
	}

	return out, nil
}

// Gather walks root and returns a locked File for every regular file whose
// relative path does not match ignore. Symlinks are skipped.
func Gather(ctx context.Context, root string, ignore *patterns.Set) (*Set, error) {
	if ignore != nil {
		if err := ignore.Build(); err != nil {
			return nil, err
		}
	}

	root = normalizeRoot(root)
	set := &Set{}

	err := filepath.WalkDir(filepath.FromSlash(root), func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.Type()&os.ModeSymlink != 0 || d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		f := NewFile(filepath.ToSlash(p), root)
		if ignore != nil && ignore.MustTest(f.RelativePath()) {
			return nil
		}
		set.Add(f)
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("root %s does not exist: %w", root, err)
		}
		return nil, err
	}

	return set, nil
}

// OutputPath returns the path a source will occupy relative to its root:
// the alias when set, else the relative path.
func OutputPath(s Source) string {
	if a := s.Alias(); a != "" {
		return a
	}
	return s.RelativePath()
}
