// SPDX-License-Identifier: MPL-2.0

package load

import (
	"sync"

	"github.com/mesozoic/mesozoic/pkg/source"
)

// DynamicImports collects the local sources reached through dynamic imports.
// It is safe for concurrent use; adding a source twice is a no-op.
type DynamicImports struct {
	mu    sync.Mutex
	items []source.Source
	seen  map[string]bool
}

// Add records src.
func (d *DynamicImports) Add(src source.Source) {
	if src == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	key := src.Path()
	if d.seen[key] {
		return
	}
	d.seen[key] = true
	d.items = append(d.items, src)
}

// Len returns the number of recorded sources.
func (d *DynamicImports) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}

// Set returns the recorded sources as a source set.
func (d *DynamicImports) Set() *source.Set {
	d.mu.Lock()
	defer d.mu.Unlock()
	return source.NewSet(d.items...)
}
