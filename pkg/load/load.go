// SPDX-License-Identifier: MPL-2.0

// Package load produces module content for resolved specifiers.
//
// Remote modules come from a Fetcher (typically a caching HTTP client) and
// facade modules are replaced by the module they re-export. Local modules
// come from the source set. Every failure degrades to an empty Result: a
// module that cannot be loaded is simply absent from the graph.
package load

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/mesozoic/mesozoic/pkg/graph"
	"github.com/mesozoic/mesozoic/pkg/lexer"
	"github.com/mesozoic/mesozoic/pkg/patterns"
	"github.com/mesozoic/mesozoic/pkg/source"
	"github.com/mesozoic/mesozoic/pkg/specifier"
)

// UserAgent is sent with every remote request.
const UserAgent = "mesozoic"

// maxFacadeDepth bounds how many facades are followed for one specifier.
const maxFacadeDepth = 8

type (
	// Fetched is a remote response as returned by a Fetcher.
	Fetched struct {
		// URL is the final URL after redirects.
		URL    string
		Status int
		// Headers has lower-case keys.
		Headers map[string]string
		Body    []byte
	}

	// Fetcher retrieves remote content. Implementations drain and close the
	// body of unsuccessful responses themselves.
	Fetcher interface {
		Fetch(ctx context.Context, rawURL string, policy Policy) (*Fetched, error)
	}

	// Options configures a Loader.
	Options struct {
		Sources *source.Set
		Fetcher Fetcher
		// Lexer is used for facade detection; nil uses lexer.Default.
		Lexer  lexer.Lexer
		Policy Policy
		Target Target
		// DynamicImportIgnore lists remote URLs that dynamic imports must not follow.
		DynamicImportIgnore *patterns.Set
		Logger              *log.Logger
	}

	// Result is the outcome of one load. Response is nil when the module is absent.
	Result struct {
		Response *graph.Response
		// DynamicSource is the local source loaded through a dynamic import, if any.
		DynamicSource source.Source
	}

	// Loader loads local and remote modules. It is safe for concurrent use.
	Loader struct {
		sources *source.Set
		fetcher Fetcher
		lexer   lexer.Lexer
		policy  Policy
		target  Target
		ignore  *patterns.Set
		logger  *log.Logger
	}
)

// New creates a Loader. It fails if the dynamic import ignore patterns are invalid.
func New(opts Options) (*Loader, error) {
	l := &Loader{
		sources: opts.Sources,
		fetcher: opts.Fetcher,
		lexer:   opts.Lexer,
		policy:  opts.Policy,
		target:  opts.Target,
		ignore:  opts.DynamicImportIgnore,
		logger:  opts.Logger,
	}
	if l.sources == nil {
		l.sources = source.NewSet()
	}
	if l.lexer == nil {
		l.lexer = lexer.Default{}
	}
	if l.logger == nil {
		l.logger = log.New(io.Discard)
	}
	if l.ignore != nil {
		if err := l.ignore.Build(); err != nil {
			return nil, fmt.Errorf("dynamic import ignore patterns: %w", err)
		}
	}
	return l, nil
}

// Load loads the module at spec, a fully resolved specifier.
func (l *Loader) Load(ctx context.Context, spec string, dynamic bool) Result {
	switch {
	case specifier.IsRemote(spec):
		if dynamic && l.ignore != nil && l.ignore.MustTest(spec) {
			l.logger.Debug("dynamic import ignored", "specifier", spec)
			return Result{}
		}
		return Result{Response: l.loadRemote(ctx, spec, 0)}
	case strings.HasPrefix(spec, "data:"), strings.HasPrefix(spec, "node:"):
		return Result{}
	default:
		return l.loadLocal(spec, dynamic)
	}
}

// GraphLoader adapts the Loader to a graph.LoadFunc, recording dynamically
// imported local sources in dynamicImports when it is not nil.
func (l *Loader) GraphLoader(dynamicImports *DynamicImports) graph.LoadFunc {
	return func(ctx context.Context, spec string, dynamic bool) (*graph.Response, error) {
		res := l.Load(ctx, spec, dynamic)
		if dynamicImports != nil && res.DynamicSource != nil {
			dynamicImports.Add(res.DynamicSource)
		}
		return res.Response, nil
	}
}

func (l *Loader) loadRemote(ctx context.Context, spec string, depth int) *graph.Response {
	if l.fetcher == nil {
		l.logger.Debug("no fetcher for remote module", "specifier", spec)
		return nil
	}

	u, err := url.Parse(spec)
	if err != nil {
		l.logger.Debug("invalid remote specifier", "specifier", spec, "err", err)
		return nil
	}
	request := PrepareRequestURL(u, l.target).String()

	fetched, err := l.fetcher.Fetch(ctx, request, l.policy)
	if err != nil {
		l.logger.Debug("fetch failed", "specifier", spec, "err", err)
		return nil
	}
	if fetched.Status != http.StatusOK {
		l.logger.Debug("fetch failed", "specifier", spec, "status", fetched.Status)
		return nil
	}

	final := spec
	if fetched.URL != "" && fetched.URL != request {
		final = fetched.URL
	}

	if !specifier.HasModuleExtension(spec) && depth < maxFacadeDepth {
		if target, ok := FacadeRedirect(final, string(fetched.Body), l.lexer); ok {
			l.logger.Debug("following facade", "specifier", spec, "to", target)
			resp := l.loadRemote(ctx, target, depth+1)
			if resp == nil {
				return nil
			}
			resp.Specifier = specifier.StripQuery(resp.Specifier)
			return resp
		}
	}

	return &graph.Response{
		Specifier: final,
		Headers:   fetched.Headers,
		Content:   fetched.Body,
	}
}

func (l *Loader) loadLocal(spec string, dynamic bool) Result {
	var (
		src source.Source
		ok  bool
	)
	if specifier.IsLocal(spec) {
		src, ok = l.sources.FindByURL(spec)
	} else {
		src, ok = l.sources.FindByPath(spec)
	}
	if !ok {
		l.logger.Debug("local module not found", "specifier", spec)
		return Result{}
	}

	text, err := src.Read()
	if err != nil {
		l.logger.Debug("local module unreadable", "specifier", spec, "err", err)
		return Result{}
	}

	res := Result{Response: &graph.Response{
		Specifier: src.URL().String(),
		Content:   []byte(text),
	}}
	if dynamic {
		res.DynamicSource = src
	}
	return res
}
