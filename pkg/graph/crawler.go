// SPDX-License-Identifier: MPL-2.0

package graph

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/mesozoic/mesozoic/pkg/lexer"
)

// Crawler is the default Builder. It loads the graph breadth first, one
// level at a time, with at most Concurrency loads in flight. Modules appear
// in the graph in the order they were requested, independent of load timing.
type Crawler struct {
	// Lexer extracts imports from module text; nil uses lexer.Default.
	Lexer lexer.Lexer
	// Concurrency bounds parallel loads; zero uses GOMAXPROCS.
	Concurrency int
	Logger      *log.Logger
}

type request struct {
	specifier string
	dynamic   bool
}

type loaded struct {
	request
	response *Response
}

// Build crawls from roots. Absent modules are skipped; load and resolve
// errors abort the crawl.
func (c *Crawler) Build(ctx context.Context, roots []string, load LoadFunc, resolve ResolveFunc) (*Graph, error) {
	lx := c.Lexer
	if lx == nil {
		lx = lexer.Default{}
	}
	logger := c.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	limit := c.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	g := New(roots...)
	requested := make(map[string]bool)

	level := make([]request, 0, len(roots))
	for _, r := range roots {
		if !requested[r] {
			requested[r] = true
			level = append(level, request{specifier: r})
		}
	}

	for len(level) > 0 {
		results, err := loadLevel(ctx, level, load, limit)
		if err != nil {
			return nil, err
		}

		var next []request
		for _, res := range results {
			if res.response == nil {
				logger.Debug("module absent", "specifier", res.specifier)
				continue
			}

			final := res.response.Specifier
			if final == "" {
				final = res.specifier
			}
			g.AddRedirect(res.specifier, final)
			if _, ok := g.Get(final); ok {
				continue
			}

			m := &Module{
				Specifier: final,
				Kind:      kindOf(final, res.response.Headers),
				Content:   res.response.Content,
				Headers:   res.response.Headers,
			}
			g.AddModule(m)
			requested[final] = true

			if m.Kind != KindESM {
				continue
			}

			for _, imp := range lx.Parse(string(m.Content)).Imports {
				resolved, err := resolve(imp.Specifier, final)
				if err != nil {
					return nil, fmt.Errorf("resolving imports of %s: %w", final, err)
				}

				dynamic := imp.Kind == lexer.KindDynamic
				m.Dependencies = append(m.Dependencies, Dependency{
					Specifier: imp.Specifier,
					Resolved:  resolved,
					Dynamic:   dynamic,
				})
				g.AddEdge(final, resolved)

				if !requested[resolved] {
					requested[resolved] = true
					next = append(next, request{specifier: resolved, dynamic: dynamic})
				}
			}
		}

		level = next
	}

	// Edges were recorded against requested URLs; point them at what was served.
	for from, tos := range g.adjacency {
		for i, to := range tos {
			tos[i] = g.Resolve(to)
		}
		g.adjacency[from] = tos
	}

	return g, nil
}

func loadLevel(ctx context.Context, level []request, load LoadFunc, limit int) ([]loaded, error) {
	results := make([]loaded, len(level))

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(min(limit, len(level)))

	for i, req := range level {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			resp, err := load(egctx, req.specifier, req.dynamic)
			if err != nil {
				return fmt.Errorf("loading %s: %w", req.specifier, err)
			}
			results[i] = loaded{request: req, response: resp}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
