// SPDX-License-Identifier: MPL-2.0

package resolve

import "sync"

// BareSpecifierMap records which URL every bare specifier resolved to.
// It is safe for concurrent use; the last write for a key wins and keys keep
// their first insertion position.
type BareSpecifierMap struct {
	mu     sync.RWMutex
	keys   []string
	values map[string]string
}

// NewBareSpecifierMap returns an empty map.
func NewBareSpecifierMap() *BareSpecifierMap {
	return &BareSpecifierMap{values: make(map[string]string)}
}

// Set records that specifier resolved to resolved.
func (m *BareSpecifierMap) Set(specifier, resolved string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[specifier]; !ok {
		m.keys = append(m.keys, specifier)
	}
	m.values[specifier] = resolved
}

// Get returns the URL recorded for specifier.
func (m *BareSpecifierMap) Get(specifier string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[specifier]
	return v, ok
}

// Len returns the number of recorded specifiers.
func (m *BareSpecifierMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

// Entry is one recorded bare specifier.
type Entry struct {
	Specifier string
	Resolved  string
}

// Entries returns a snapshot of the recorded specifiers in insertion order.
func (m *BareSpecifierMap) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, Entry{Specifier: k, Resolved: m.values[k]})
	}
	return out
}

// ApplyRedirects replaces every recorded URL that appears as a key in
// redirects with its redirect target.
func (m *BareSpecifierMap) ApplyRedirects(redirects map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range m.keys {
		if target, ok := redirects[m.values[k]]; ok && target != "" {
			m.values[k] = target
		}
	}
}

// ResolveBareSpecifierRedirects applies redirects to specifiers and returns it.
func ResolveBareSpecifierRedirects(specifiers *BareSpecifierMap, redirects map[string]string) *BareSpecifierMap {
	specifiers.ApplyRedirects(redirects)
	return specifiers
}
