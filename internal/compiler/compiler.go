// SPDX-License-Identifier: MPL-2.0

// Package compiler transpiles TypeScript and JSX sources to browser-ready
// JavaScript with esbuild. Output keeps the import specifiers of the input so
// the module graph can still be built from compiled code.
package compiler

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/mesozoic/mesozoic/pkg/source"
)

// DefaultJSXImportSource is the module the automatic JSX runtime is imported from.
const DefaultJSXImportSource = "react"

type (
	// Options configures a Compiler.
	Options struct {
		Minify     bool
		SourceMaps bool
		// JSXImportSource defaults to DefaultJSXImportSource.
		JSXImportSource string
	}

	// Compiler transforms one source at a time. It is safe for concurrent use.
	Compiler struct {
		opts Options
	}

	// Error carries the diagnostics of a failed transform.
	Error struct {
		Filename string
		Messages []string
	}
)

// ErrUnsupported is returned for files esbuild has no loader for.
var ErrUnsupported = errors.New("unsupported source type")

func (e *Error) Error() string {
	return fmt.Sprintf("compiling %s: %s", e.Filename, strings.Join(e.Messages, "; "))
}

// New creates a Compiler.
func New(opts Options) *Compiler {
	if opts.JSXImportSource == "" {
		opts.JSXImportSource = DefaultJSXImportSource
	}
	return &Compiler{opts: opts}
}

// Transform compiles code. filename selects the loader by extension and is
// used in diagnostics and source maps.
func (c *Compiler) Transform(filename string, code []byte) ([]byte, error) {
	loader, ok := loaderFor(filename)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filename)
	}

	opts := api.TransformOptions{
		Loader:            loader,
		Sourcefile:        filename,
		Format:            api.FormatESModule,
		Target:            api.ES2022,
		JSX:               api.JSXAutomatic,
		JSXImportSource:   c.opts.JSXImportSource,
		MinifyWhitespace:  c.opts.Minify,
		MinifyIdentifiers: c.opts.Minify,
		MinifySyntax:      c.opts.Minify,
		LogLevel:          api.LogLevelSilent,
	}
	if c.opts.SourceMaps {
		opts.Sourcemap = api.SourceMapInline
		opts.SourcesContent = api.SourcesContentInclude
	}

	result := api.Transform(string(code), opts)
	if len(result.Errors) > 0 {
		return nil, &Error{Filename: filename, Messages: messages(result.Errors)}
	}
	return result.Code, nil
}

// Compile rewrites src in place with its compiled form. src must be writable.
func (c *Compiler) Compile(src source.Source) error {
	code, err := src.ReadBytes()
	if err != nil {
		return fmt.Errorf("reading %s: %w", src.RelativePath(), err)
	}
	out, err := c.Transform(src.Path(), code)
	if err != nil {
		return err
	}
	if err := src.Write(out); err != nil {
		return fmt.Errorf("writing %s: %w", src.RelativePath(), err)
	}
	return nil
}

func loaderFor(filename string) (api.Loader, bool) {
	switch strings.ToLower(path.Ext(filename)) {
	case ".ts", ".mts", ".cts":
		return api.LoaderTS, true
	case ".tsx":
		return api.LoaderTSX, true
	case ".jsx":
		return api.LoaderJSX, true
	case ".js", ".mjs", ".cjs":
		return api.LoaderJS, true
	default:
		return api.LoaderNone, false
	}
}

func messages(msgs []api.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			out = append(out, fmt.Sprintf("%d:%d: %s", m.Location.Line, m.Location.Column, m.Text))
			continue
		}
		out = append(out, m.Text)
	}
	return out
}
