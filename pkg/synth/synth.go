// SPDX-License-Identifier: MPL-2.0

// Package synth builds the import map for a finished module graph.
package synth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/mesozoic/mesozoic/pkg/graph"
	"github.com/mesozoic/mesozoic/pkg/importmap"
	"github.com/mesozoic/mesozoic/pkg/resolve"
	"github.com/mesozoic/mesozoic/pkg/source"
	"github.com/mesozoic/mesozoic/pkg/specifier"
	"github.com/mesozoic/mesozoic/pkg/vendor"
)

var (
	// ErrLocalSourceMissing is wrapped when a local module has no source.
	ErrLocalSourceMissing = errors.New("failed to find local source")

	// ErrNotInGraph is wrapped when a resolved bare specifier has no module.
	ErrNotInGraph = errors.New("failed to resolve from module graph")
)

// GraphConsistencyError reports a module graph that does not agree with the
// sources or resolutions it was built from.
type GraphConsistencyError struct {
	Specifier string
	Err       error
}

func (e *GraphConsistencyError) Error() string {
	return fmt.Sprintf("%v %s", e.Err, e.Specifier)
}

func (e *GraphConsistencyError) Unwrap() error { return e.Err }

// Input is everything Synthesize needs.
type Input struct {
	Graph   *graph.Graph
	Sources *source.Set
	Bare    *resolve.BareSpecifierMap
	// Mapping is the vendor layout; nil keeps remote URLs as they are.
	Mapping *vendor.Mapping
	// VendorPrefix is prepended to vendored paths, e.g. "./vendor/browser/".
	VendorPrefix string
}

// Synthesize returns the import map for in.Graph.
//
// Local modules map their relative path to their output path. Remote modules
// are grouped into one scope per origin, each holding one entry per first
// path segment. Bare specifiers map to the module they finally resolved to.
func Synthesize(in Input) (*importmap.ImportMap, error) {
	if in.Graph == nil {
		return nil, errors.New("synthesize: nil graph")
	}
	if in.Mapping != nil && in.VendorPrefix != "" && !strings.HasSuffix(in.VendorPrefix, "/") {
		in.VendorPrefix += "/"
	}

	im := importmap.New()
	s := &synth{in: in, im: im, scopes: make(map[string][]scoped)}

	for _, m := range in.Graph.Modules() {
		switch {
		case specifier.IsLocal(m.Specifier):
			if err := s.local(m); err != nil {
				return nil, err
			}
		case specifier.IsRemote(m.Specifier):
			if err := s.remote(m); err != nil {
				return nil, err
			}
		}
	}

	if in.Bare != nil {
		for _, e := range in.Bare.Entries() {
			if err := s.bare(e); err != nil {
				return nil, err
			}
		}
	}

	s.collapseScopes()

	return im, nil
}

type synth struct {
	in Input
	im *importmap.ImportMap

	// scopes maps a scope key to the modules it holds.
	scopeOrder []string
	scopes     map[string][]scoped
}

// scoped is a remote module's URL path and, when vendored, its path below
// the scope key.
type scoped struct {
	urlPath string
	local   string
}

func (s *synth) local(m *graph.Module) error {
	src, ok := s.in.Sources.FindByURL(m.Specifier)
	if !ok {
		return &GraphConsistencyError{Specifier: m.Specifier, Err: ErrLocalSourceMissing}
	}
	s.im.Imports.Set(src.RelativePath(), source.OutputPath(src))
	return nil
}

func (s *synth) remote(m *graph.Module) error {
	u, err := url.Parse(specifier.StripQuery(m.Specifier))
	if err != nil {
		return fmt.Errorf("invalid module specifier %s: %w", m.Specifier, err)
	}
	root := specifier.OriginRoot(u)

	key, err := s.scopeKey(root)
	if err != nil {
		return err
	}
	if key != root && !s.im.Imports.Has(root) {
		s.im.Imports.Set(root, key)
	}

	entry := scoped{urlPath: u.Path}
	if s.in.Mapping != nil {
		local, ok := s.in.Mapping.LocalPath(m.Specifier)
		if !ok {
			return &GraphConsistencyError{Specifier: m.Specifier, Err: errors.New("no vendor path for module")}
		}
		entry.local = strings.TrimPrefix(s.in.VendorPrefix+local, key)
	}

	if _, ok := s.scopes[key]; !ok {
		s.scopeOrder = append(s.scopeOrder, key)
	}
	s.scopes[key] = append(s.scopes[key], entry)
	return nil
}

// scopeKey is the vendored base directory of an origin, or the origin itself.
func (s *synth) scopeKey(root string) (string, error) {
	if s.in.Mapping == nil {
		return root, nil
	}
	base, ok := s.in.Mapping.LocalPath(root)
	if !ok {
		return "", &GraphConsistencyError{Specifier: root, Err: errors.New("no vendor path for origin")}
	}
	return s.in.VendorPrefix + base + "/", nil
}

func (s *synth) bare(e resolve.Entry) error {
	final := s.in.Graph.Resolve(e.Resolved)

	if target, ok := s.im.Imports.Get(e.Specifier); ok {
		s.im.Imports.Set(final, target)
		return nil
	}

	if specifier.IsLocal(final) {
		src, ok := s.in.Sources.FindByURL(final)
		if !ok {
			return &GraphConsistencyError{Specifier: final, Err: ErrLocalSourceMissing}
		}
		s.im.Imports.Set(e.Specifier, source.OutputPath(src))
		return nil
	}

	m, ok := s.in.Graph.Lookup(final)
	if !ok {
		if specifier.IsTypeDeclaration(final) {
			return nil
		}
		return &GraphConsistencyError{Specifier: final, Err: ErrNotInGraph}
	}

	target := m.Specifier
	if s.in.Mapping != nil {
		local, ok := s.in.Mapping.LocalPath(m.Specifier)
		if !ok {
			return &GraphConsistencyError{Specifier: m.Specifier, Err: errors.New("no vendor path for module")}
		}
		target = s.in.VendorPrefix + local
	}
	s.im.Imports.Set(e.Specifier, target)
	return nil
}

// collapseScopes writes one entry per first path segment into each scope.
// Vendored targets come from the vendor mapping, so a segment that was
// renamed on disk points at the renamed directory. A module whose file was
// renamed below that directory gets an exact entry of its own.
func (s *synth) collapseScopes() {
	for _, key := range s.scopeOrder {
		scope := s.im.Scopes.Ensure(key)
		for _, e := range s.scopes[key] {
			rest := strings.TrimPrefix(e.urlPath, "/")
			if rest == "" {
				continue
			}
			local := e.local
			if s.in.Mapping == nil {
				local = rest
			}

			i := strings.Index(rest, "/")
			j := strings.Index(local, "/")
			if i < 0 || j < 0 {
				setOnce(scope, "/"+rest, key+local)
				continue
			}
			seg, localSeg := rest[:i+1], local[:j+1]
			setOnce(scope, "/"+seg, key+localSeg)
			if localSeg+rest[i+1:] != local {
				setOnce(scope, "/"+rest, key+local)
			}
		}
	}
}

func setOnce(m *importmap.SpecifierMap, specifier, address string) {
	if !m.Has(specifier) {
		m.Set(specifier, address)
	}
}
