// SPDX-License-Identifier: MPL-2.0

// Package graph holds the module graph produced by crawling from a set of
// entrypoints, and the Builder contract used to produce it.
//
// Modules are kept in the order they were discovered so that everything
// derived from a graph (import maps, vendor layouts) is reproducible.
package graph

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/mesozoic/mesozoic/pkg/specifier"
)

type (
	// Response is what a LoadFunc returns for a module that exists.
	Response struct {
		// Specifier is the URL the content was actually served from.
		Specifier string
		Headers   map[string]string
		Content   []byte
	}

	// LoadFunc loads the module at specifier. A nil response means the module
	// is absent and the crawl does not follow it.
	LoadFunc func(ctx context.Context, specifier string, dynamic bool) (*Response, error)

	// ResolveFunc resolves specifier as imported by referrer.
	ResolveFunc func(specifier, referrer string) (string, error)

	// Builder produces a Graph from entrypoint URLs.
	Builder interface {
		Build(ctx context.Context, roots []string, load LoadFunc, resolve ResolveFunc) (*Graph, error)
	}

	// ModuleKind classifies module content.
	ModuleKind string

	// Dependency is one import of a module.
	Dependency struct {
		// Specifier is the text as written in the importing module.
		Specifier string
		// Resolved is the absolute URL it resolved to.
		Resolved string
		Dynamic  bool
	}

	// Module is one loaded module.
	Module struct {
		Specifier    string
		Kind         ModuleKind
		Content      []byte
		Headers      map[string]string
		Dependencies []Dependency
	}

	// Graph is a set of modules with the import edges between them and the
	// redirects observed while loading.
	Graph struct {
		Roots     []string
		Redirects map[string]string

		// modules in discovery order
		modules []*Module
		index   map[string]int
		// adjacency maps a module to the modules it imports.
		adjacency map[string][]string
	}
)

const (
	KindESM   ModuleKind = "esm"
	KindJSON  ModuleKind = "json"
	KindAsset ModuleKind = "asset"
)

// New creates an empty Graph.
func New(roots ...string) *Graph {
	return &Graph{
		Roots:     roots,
		Redirects: make(map[string]string),
		index:     make(map[string]int),
		adjacency: make(map[string][]string),
	}
}

// AddModule adds m to the graph. If a module with the same specifier exists, this is a no-op.
func (g *Graph) AddModule(m *Module) {
	if _, ok := g.index[m.Specifier]; ok {
		return
	}
	g.index[m.Specifier] = len(g.modules)
	g.modules = append(g.modules, m)
}

// AddEdge records that from imports to.
func (g *Graph) AddEdge(from, to string) {
	g.adjacency[from] = append(g.adjacency[from], to)
}

// AddRedirect records that a request for from was served by to.
func (g *Graph) AddRedirect(from, to string) {
	if from != to {
		g.Redirects[from] = to
	}
}

// Modules returns the modules in discovery order.
func (g *Graph) Modules() []*Module {
	return append([]*Module(nil), g.modules...)
}

// Len returns the number of modules.
func (g *Graph) Len() int { return len(g.modules) }

// Get returns the module stored under exactly specifier.
func (g *Graph) Get(specifier string) (*Module, bool) {
	i, ok := g.index[specifier]
	if !ok {
		return nil, false
	}
	return g.modules[i], true
}

// Resolve follows the redirect chain from specifier and returns the final URL.
func (g *Graph) Resolve(specifier string) string {
	seen := make(map[string]bool)
	for !seen[specifier] {
		seen[specifier] = true
		next, ok := g.Redirects[specifier]
		if !ok {
			break
		}
		specifier = next
	}
	return specifier
}

// Lookup is Get after following redirects.
func (g *Graph) Lookup(specifier string) (*Module, bool) {
	return g.Get(g.Resolve(specifier))
}

// Dependencies returns the specifiers of the modules imported by specifier.
func (g *Graph) Dependencies(specifier string) []string {
	return append([]string(nil), g.adjacency[specifier]...)
}

// RemoteSpecifiers returns the specifiers of all remote modules in discovery order.
func (g *Graph) RemoteSpecifiers() []string {
	var out []string
	for _, m := range g.modules {
		if specifier.IsRemote(m.Specifier) {
			out = append(out, m.Specifier)
		}
	}
	return out
}

// Order returns the module specifiers so that every module comes after the
// modules it imports. Modules that take part in an import cycle cannot be
// ordered; they follow the rest in discovery order.
func (g *Graph) Order() []string {
	if len(g.modules) == 0 {
		return nil
	}

	// outDegree counts the unordered dependencies of each module.
	outDegree := make(map[string]int, len(g.modules))
	dependents := make(map[string][]string)
	for _, m := range g.modules {
		outDegree[m.Specifier] = 0
	}
	for _, m := range g.modules {
		from := m.Specifier
		for _, to := range g.adjacency[from] {
			if _, ok := g.index[to]; !ok || to == from {
				continue
			}
			outDegree[from]++
			dependents[to] = append(dependents[to], from)
		}
	}

	queue := make([]string, 0)
	for _, m := range g.modules {
		if outDegree[m.Specifier] == 0 {
			queue = append(queue, m.Specifier)
		}
	}

	result := make([]string, 0, len(g.modules))
	done := make(map[string]bool, len(g.modules))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)
		done[node] = true

		for _, dependent := range dependents[node] {
			outDegree[dependent]--
			if outDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	for _, m := range g.modules {
		if !done[m.Specifier] {
			result = append(result, m.Specifier)
		}
	}
	return result
}

// kindOf derives the module kind from the specifier extension and, for
// extensionless or versioned URLs, the content type.
func kindOf(spec string, headers map[string]string) ModuleKind {
	switch path.Ext(specifier.StripQuery(spec)) {
	case ".js", ".mjs", ".cjs", ".jsx", ".ts", ".mts", ".cts", ".tsx":
		return KindESM
	case ".json":
		return KindJSON
	case ".wasm", ".css", ".html", ".svg", ".png", ".jpg", ".jpeg", ".gif", ".webp", ".txt", ".md":
		return KindAsset
	}

	ct := strings.ToLower(headers["content-type"])
	switch {
	case ct == "", strings.Contains(ct, "javascript"), strings.Contains(ct, "typescript"):
		return KindESM
	case strings.Contains(ct, "json"):
		return KindJSON
	}
	return KindAsset
}

func (m *Module) String() string {
	return fmt.Sprintf("%s (%s, %d bytes)", m.Specifier, m.Kind, len(m.Content))
}
