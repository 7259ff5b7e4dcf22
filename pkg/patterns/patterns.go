// SPDX-License-Identifier: MPL-2.0

// Package patterns matches slash-separated paths against glob patterns.
//
// A Set holds positive and negated patterns. A path matches the set when it
// matches at least one positive pattern and no negated pattern. Patterns use
// doublestar syntax ("*", "**", "?", "[...]", "{a,b}"); a leading "!" negates
// and a trailing "/" matches everything below that directory.
package patterns

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	// ErrNotBuilt is returned when a Set is tested before Build.
	ErrNotBuilt = errors.New("patterns must be built before testing")

	// ErrBadPattern is returned by Build for a syntactically invalid pattern.
	ErrBadPattern = errors.New("invalid pattern")
)

// Set is a collection of positive and negated glob patterns.
// Test is safe for concurrent use once the set is built.
type Set struct {
	mu sync.RWMutex

	values []string
	negate []string
	seen   map[string]bool
	seenNe map[string]bool

	compiled []string
	negated  []string
	built    bool
}

// New creates a Set holding the given patterns.
func New(patterns ...string) *Set {
	s := &Set{
		seen:   make(map[string]bool),
		seenNe: make(map[string]bool),
	}
	return s.Add(patterns...)
}

// Add appends patterns to the set. A "!" prefixed pattern is stored without
// the prefix as both a positive and a negated pattern. Adding to a built set
// returns it to the unbuilt state.
func (s *Set) Add(patterns ...string) *Set {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen == nil {
		s.seen = make(map[string]bool)
		s.seenNe = make(map[string]bool)
	}

	for _, p := range patterns {
		if rest, ok := strings.CutPrefix(p, "!"); ok {
			p = rest
			if !s.seenNe[p] {
				s.seenNe[p] = true
				s.negate = append(s.negate, p)
			}
		}
		if !s.seen[p] {
			s.seen[p] = true
			s.values = append(s.values, p)
		}
		s.built = false
	}

	return s
}

// Build validates and compiles the patterns. Building an already built set
// is a no-op.
func (s *Set) Build() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.built {
		return nil
	}

	compiled, err := compile(s.values)
	if err != nil {
		return err
	}
	negated, err := compile(s.negate)
	if err != nil {
		return err
	}

	s.compiled = compiled
	s.negated = negated
	s.built = true
	return nil
}

// Test reports whether path matches the set.
func (s *Set) Test(path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.built {
		return false, ErrNotBuilt
	}

	return matchAny(s.compiled, path) && !matchAny(s.negated, path), nil
}

// MustTest is like Test but panics if the set has not been built.
func (s *Set) MustTest(path string) bool {
	ok, err := s.Test(path)
	if err != nil {
		panic(err)
	}
	return ok
}

// Patterns returns the positive patterns followed by the negated ones
// (with their "!" prefix restored) in insertion order.
func (s *Set) Patterns() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.values)+len(s.negate))
	out = append(out, s.values...)
	for _, n := range s.negate {
		out = append(out, "!"+n)
	}
	return out
}

// Len returns the number of distinct positive patterns.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

func compile(patterns []string) ([]string, error) {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if strings.HasSuffix(p, "/") {
			p += "**"
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: %q", ErrBadPattern, p)
		}
		out = append(out, p)
	}
	return out, nil
}

func matchAny(patterns []string, path string) bool {
	for _, p := range patterns {
		// Patterns are validated at build time, so the error is always nil.
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}
