// SPDX-License-Identifier: MPL-2.0

// Package resolve turns import specifiers into absolute URLs.
//
// Resolve is the raw algorithm: relative, local and remote specifiers are
// resolved against the referrer URL and bare specifiers are returned as-is.
// A Resolver adds the import map for bare specifiers and the local source set
// for file URLs.
package resolve

import (
	"errors"
	"io"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/mesozoic/mesozoic/pkg/importmap"
	"github.com/mesozoic/mesozoic/pkg/source"
	"github.com/mesozoic/mesozoic/pkg/specifier"
)

var (
	// ErrNoImportMapEntry is wrapped by a ResolutionError for a bare specifier the import map does not cover.
	ErrNoImportMapEntry = errors.New("no import map entry")

	// ErrLocalSource is wrapped by a ResolutionError for a file URL with no matching source.
	ErrLocalSource = errors.New("failed to resolve local source")

	errRelativeReferrer = errors.New("referrer is not an absolute URL")
)

// Resolve resolves spec against referrer without consulting an import map.
//
// Bare specifiers are returned unchanged, except a path-absolute one ("/x")
// imported by a remote module, which is joined to the referrer's origin.
func Resolve(spec, referrer string) (string, error) {
	if specifier.IsBare(spec) {
		if !strings.HasPrefix(spec, "/") || !specifier.IsRemote(referrer) {
			return spec, nil
		}
	}

	base, err := url.Parse(referrer)
	if err != nil {
		return "", &ResolutionError{Specifier: spec, Referrer: referrer, Err: err}
	}
	if !base.IsAbs() {
		return "", &ResolutionError{Specifier: spec, Referrer: referrer, Err: errRelativeReferrer}
	}

	u, err := base.Parse(spec)
	if err != nil {
		return "", &ResolutionError{Specifier: spec, Referrer: referrer, Err: err}
	}

	return normalize(u).String(), nil
}

// normalize gives special-scheme URLs a root path, as browsers do.
func normalize(u *url.URL) *url.URL {
	if (u.Scheme == "http" || u.Scheme == "https") && u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}
	return u
}

// Options configures a Resolver.
type Options struct {
	// ImportMap maps bare specifiers; nil means an empty map.
	ImportMap *importmap.ImportMap
	// BaseURL is the URL the import map's relative entries resolve against.
	BaseURL *url.URL
	// Sources are the local files file URLs must resolve to.
	Sources *source.Set
	// Bare receives every bare specifier the import map resolved.
	Bare *BareSpecifierMap
	// Logger receives debug output; nil discards it.
	Logger *log.Logger
}

// Resolver resolves specifiers through an import map and a local source set.
// It is safe for concurrent use and memoizes results per referrer and specifier.
type Resolver struct {
	importMap *importmap.Normalized
	baseURL   *url.URL
	sources   *source.Set
	bare      *BareSpecifierMap
	logger    *log.Logger

	memo sync.Map // memoKey -> string
}

type memoKey struct {
	referrer  string
	specifier string
}

// New creates a Resolver.
func New(opts Options) *Resolver {
	base := opts.BaseURL
	if base == nil {
		base = &url.URL{Scheme: "file", Path: "/"}
	}
	sources := opts.Sources
	if sources == nil {
		sources = source.NewSet()
	}
	bare := opts.Bare
	if bare == nil {
		bare = NewBareSpecifierMap()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	r := &Resolver{
		importMap: importmap.Normalize(opts.ImportMap, base),
		baseURL:   base,
		sources:   sources,
		bare:      bare,
		logger:    logger,
	}
	for _, w := range r.importMap.Warnings {
		logger.Warn("import map", "issue", w)
	}
	return r
}

// Bare returns the map of resolved bare specifiers.
func (r *Resolver) Bare() *BareSpecifierMap { return r.bare }

// Resolve resolves spec as imported by referrer.
func (r *Resolver) Resolve(spec, referrer string) (string, error) {
	key := memoKey{referrer: referrer, specifier: spec}
	if v, ok := r.memo.Load(key); ok {
		return v.(string), nil
	}

	r.logger.Debug("resolve", "specifier", spec, "referrer", referrer)

	resolved, err := r.resolve(spec, referrer)
	if err != nil {
		return "", err
	}

	r.memo.Store(key, resolved)
	r.logger.Debug("resolved", "specifier", spec, "to", resolved)

	return resolved, nil
}

func (r *Resolver) resolve(spec, referrer string) (string, error) {
	resolved, err := Resolve(spec, referrer)
	if err != nil {
		return "", err
	}

	if specifier.IsBare(resolved) {
		ref, err := url.Parse(referrer)
		if err != nil {
			return "", &ResolutionError{Specifier: spec, Referrer: referrer, Err: err}
		}
		if !ref.IsAbs() {
			return "", &ResolutionError{Specifier: spec, Referrer: referrer, Err: errRelativeReferrer}
		}

		res, err := r.importMap.Resolve(spec, ref)
		if err != nil {
			return "", &ResolutionError{Specifier: spec, Referrer: referrer, Err: err}
		}
		if res.URL == nil {
			return "", &ResolutionError{Specifier: spec, Referrer: referrer, Err: ErrNoImportMapEntry}
		}

		resolved = normalize(res.URL).String()
		if res.Matched {
			r.bare.Set(spec, resolved)
		}
	}

	if specifier.IsLocal(resolved) {
		src, ok := r.findLocal(resolved)
		if !ok {
			return "", &ResolutionError{Specifier: spec, Referrer: referrer, Err: ErrLocalSource}
		}
		resolved = src.URL().String()
	}

	return resolved, nil
}

// findLocal matches a file URL by source URL, then by path relative to the base URL.
func (r *Resolver) findLocal(fileURL string) (source.Source, bool) {
	if src, ok := r.sources.FindByURL(fileURL); ok {
		return src, true
	}

	u, err := url.Parse(fileURL)
	if err != nil {
		return nil, false
	}
	p := source.PathFromURL(u)
	basePath := source.PathFromURL(r.baseURL)
	if basePath == "" {
		return nil, false
	}
	basePath = path.Clean(basePath)
	if !strings.HasSuffix(basePath, "/") {
		basePath += "/"
	}
	rel, ok := strings.CutPrefix(p, basePath)
	if !ok {
		return nil, false
	}
	return r.sources.FindByPath("./" + rel)
}
