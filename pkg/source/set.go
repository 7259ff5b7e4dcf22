// SPDX-License-Identifier: MPL-2.0

package source

import (
	"fmt"

	"github.com/mesozoic/mesozoic/pkg/patterns"
)

// Set is a collection of Sources. Insertion order is kept so iteration is
// deterministic; lookups return the first match.
type Set struct {
	items []Source
}

// NewSet returns a Set holding items.
func NewSet(items ...Source) *Set {
	return &Set{items: append([]Source(nil), items...)}
}

// Add appends sources to the set.
func (s *Set) Add(items ...Source) {
	s.items = append(s.items, items...)
}

// Len returns the number of sources.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// All returns the sources in insertion order.
func (s *Set) All() []Source {
	if s == nil {
		return nil
	}
	return append([]Source(nil), s.items...)
}

// FindByPath returns the first source whose relative path or alias equals p.
// p may omit the leading "./".
func (s *Set) FindByPath(p string) (Source, bool) {
	if s == nil {
		return nil, false
	}
	p = ensureDotSlash(p)
	for _, src := range s.items {
		if src.RelativePath() == p || (src.Alias() != "" && src.Alias() == p) {
			return src, true
		}
	}
	return nil, false
}

// FindByURL returns the first source whose file URL, or aliased file URL, equals u.
func (s *Set) FindByURL(u string) (Source, bool) {
	if s == nil {
		return nil, false
	}
	for _, src := range s.items {
		if src.URL().String() == u {
			return src, true
		}
		if au := AliasURL(src); au != nil && au.String() == u {
			return src, true
		}
	}
	return nil, false
}

// Get is like FindByPath but returns an error when nothing matches.
func (s *Set) Get(p string) (Source, error) {
	src, ok := s.FindByPath(p)
	if !ok {
		return nil, fmt.Errorf("source does not exist at %s", p)
	}
	return src, nil
}

// Filter returns a new Set with the sources for which keep returns true.
func (s *Set) Filter(keep func(Source) bool) *Set {
	out := &Set{}
	if s == nil {
		return out
	}
	for _, src := range s.items {
		if keep(src) {
			out.items = append(out.items, src)
		}
	}
	return out
}

// Matches returns the sources whose relative path matches the pattern set,
// building it first if needed.
func (s *Set) Matches(set *patterns.Set) (*Set, error) {
	if err := set.Build(); err != nil {
		return nil, err
	}
	return s.Filter(func(src Source) bool {
		return set.MustTest(src.RelativePath())
	}), nil
}

// Merge returns a new Set containing the sources of s followed by other.
func (s *Set) Merge(other *Set) *Set {
	out := NewSet(s.All()...)
	out.Add(other.All()...)
	return out
}
