// SPDX-License-Identifier: MPL-2.0

// Package lexer extracts import and export specifiers from JavaScript and
// TypeScript module text without building a syntax tree.
//
// The scanner understands comments, string and template literals and tells
// regular expression literals from division with the usual previous-token
// heuristic. That is enough to find every static specifier and the dynamic
// imports written with a literal argument.
package lexer

// Kind classifies how a specifier is referenced.
type Kind uint8

const (
	// KindStatic is `import x from "s"`.
	KindStatic Kind = iota
	// KindReexport is `export * from "s"` or `export { x } from "s"`.
	KindReexport
	// KindSideEffect is `import "s"`.
	KindSideEffect
	// KindDynamic is `import("s")`.
	KindDynamic
)

func (k Kind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindReexport:
		return "reexport"
	case KindSideEffect:
		return "sideeffect"
	case KindDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// Import is one specifier occurrence. Start and End are byte offsets of the
// specifier text, excluding quotes.
type Import struct {
	Specifier string
	Kind      Kind
	Start     int
	End       int
}

// Module is the result of scanning one module.
type Module struct {
	Imports []Import
	// Facade is true when every top-level statement is an import or an
	// `export ... from` declaration and at least one of them re-exports.
	Facade bool
}

// Lexer scans module text.
type Lexer interface {
	Parse(text string) Module
}

// Default is the built-in Lexer.
type Default struct{}

// Parse implements Lexer.
func (Default) Parse(text string) Module { return Parse(text) }

// Parse scans text and returns its imports in document order.
func Parse(text string) Module {
	s := &scanner{src: text}
	s.run()
	return Module{
		Imports: s.imports,
		Facade:  !s.other && s.reexports > 0,
	}
}

// StaticSpecifiers returns the distinct non-dynamic specifiers of m in document order.
func (m Module) StaticSpecifiers() []string {
	seen := make(map[string]bool, len(m.Imports))
	var out []string
	for _, imp := range m.Imports {
		if imp.Kind == KindDynamic || seen[imp.Specifier] {
			continue
		}
		seen[imp.Specifier] = true
		out = append(out, imp.Specifier)
	}
	return out
}
