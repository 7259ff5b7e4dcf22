// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/mesozoic/mesozoic/internal/compiler"
	"github.com/mesozoic/mesozoic/internal/config"
	"github.com/mesozoic/mesozoic/internal/fetch"
	"github.com/mesozoic/mesozoic/internal/issue"
	"github.com/mesozoic/mesozoic/pkg/graph"
	"github.com/mesozoic/mesozoic/pkg/importmap"
	"github.com/mesozoic/mesozoic/pkg/load"
	"github.com/mesozoic/mesozoic/pkg/patterns"
	"github.com/mesozoic/mesozoic/pkg/resolve"
	"github.com/mesozoic/mesozoic/pkg/source"
	"github.com/mesozoic/mesozoic/pkg/synth"
	"github.com/mesozoic/mesozoic/pkg/vendor"
)

const (
	// ManifestFileName is written to the output directory by Build.
	ManifestFileName = "manifest.json"
)

var (
	// ErrNoEntrypoints is returned when no source matches the entrypoint patterns.
	ErrNoEntrypoints = errors.New("no source matches the entrypoint patterns")
	// ErrEntrypointMissing is returned when an entrypoint could not be loaded.
	ErrEntrypointMissing = errors.New("entrypoint missing from module graph")
)

type (
	// Options configures a Builder.
	Options struct {
		Config *config.Config
		// Fetcher retrieves remote modules; nil builds a caching fetch.Client
		// from the config.
		Fetcher load.Fetcher
		// Compiler transforms sources matching the compile patterns; nil
		// builds one from the config.
		Compiler *compiler.Compiler
		// Clean removes the output directory before a build.
		Clean  bool
		Logger *log.Logger
	}

	// Builder runs builds for one configuration.
	Builder struct {
		cfg      *config.Config
		fetcher  load.Fetcher
		compiler *compiler.Compiler
		clean    bool
		logger   *log.Logger

		ignore          *patterns.Set
		entrypoints     *patterns.Set
		compile         *patterns.Set
		contentHash     *patterns.Set
		dynamicIgnore   *patterns.Set
		manifestExclude *patterns.Set
	}

	// Result is the outcome of a build.
	Result struct {
		// Sources are the sources the graph was built from.
		Sources *source.Set
		// Compiled are the sources that were compiled.
		Compiled       *source.Set
		Graph          *graph.Graph
		ImportMap      *importmap.ImportMap
		ImportMapPath  string
		DynamicImports *source.Set
		// Vendored is nil when vendoring is disabled.
		Vendored *vendor.Result
		Manifest Manifest
		Duration time.Duration
	}
)

// New creates a Builder. The configuration must be valid.
func New(opts Options) (*Builder, error) {
	if opts.Config == nil {
		return nil, errors.New("build: nil config")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	cfg := opts.Config

	b := &Builder{
		cfg:      cfg,
		fetcher:  opts.Fetcher,
		compiler: opts.Compiler,
		clean:    opts.Clean,
		logger:   opts.Logger,

		ignore:          patterns.New(cfg.Ignore...),
		entrypoints:     patterns.New(cfg.Entrypoints...),
		compile:         patterns.New(cfg.Compile...),
		contentHash:     patterns.New(cfg.ContentHash...),
		dynamicIgnore:   patterns.New(cfg.DynamicImportIgnore...),
		manifestExclude: patterns.New(cfg.Manifest.Exclude...),
	}
	if b.logger == nil {
		b.logger = log.New(io.Discard)
	}

	// Never read previous build output back in as a source.
	if rel, err := filepath.Rel(cfg.Root, cfg.Output); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
		b.ignore.Add("./" + filepath.ToSlash(rel) + "/")
	}
	if cfg.Vendor.Enabled {
		b.ignore.Add(cfg.VendorPrefix())
	}

	for _, set := range []*patterns.Set{b.ignore, b.entrypoints, b.compile, b.contentHash, b.dynamicIgnore, b.manifestExclude} {
		if err := set.Build(); err != nil {
			return nil, err
		}
	}

	if b.compiler == nil {
		b.compiler = compiler.New(compiler.Options{
			Minify:     cfg.Compiler.Minify,
			SourceMaps: cfg.Compiler.SourceMaps,
		})
	}
	if b.fetcher == nil {
		client, err := newFetchClient(cfg, b.logger)
		if err != nil {
			return nil, err
		}
		b.fetcher = client
	}

	return b, nil
}

// Ignore returns the patterns of paths a build never reads, including the
// output directory when it is below the root.
func (b *Builder) Ignore() *patterns.Set { return b.ignore }

// Config returns the configuration the Builder was created with.
func (b *Builder) Config() *config.Config { return b.cfg }

func newFetchClient(cfg *config.Config, logger *log.Logger) (*fetch.Client, error) {
	dir := cfg.Cache.Dir
	if dir == "" {
		d, err := fetch.DefaultCacheDir()
		if err != nil {
			logger.Warn("disk cache disabled", "err", err)
		}
		dir = d
	}
	return fetch.New(
		fetch.WithCacheDir(dir),
		fetch.WithMemoryEntries(cfg.Cache.MemoryEntries),
		fetch.WithLogger(logger),
	)
}

// Build runs the full pipeline and writes everything below the output directory.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	b.logger.Info("building", "root", b.cfg.Root, "output", b.cfg.Output, "target", b.cfg.Target)

	if b.clean {
		b.logger.Info("cleaning", "dir", b.cfg.Output)
		if err := os.RemoveAll(b.cfg.Output); err != nil {
			return nil, outputError(err, b.cfg.Output)
		}
	}

	gathered, err := b.gather(ctx)
	if err != nil {
		return nil, err
	}

	copied, err := b.copySources(gathered)
	if err != nil {
		return nil, err
	}

	compiled, err := b.compileSources(ctx, copied)
	if err != nil {
		return nil, err
	}

	res, err := b.link(ctx, copied, b.cfg.Output)
	if err != nil {
		return nil, err
	}
	res.Compiled = compiled

	res.Manifest, err = NewManifest(copied, b.manifestExclude)
	if err != nil {
		return nil, err
	}
	if err := res.Manifest.WriteFile(filepath.Join(b.cfg.Output, ManifestFileName)); err != nil {
		return nil, outputError(err, b.cfg.Output)
	}

	res.Duration = time.Since(start)
	b.logger.Info("build complete", "modules", res.Graph.Len(), "duration", res.Duration.Round(time.Millisecond))
	return res, nil
}

// Vendor builds the module graph straight from the source tree, vendors its
// remote modules and writes the import map. Sources are neither copied nor
// compiled.
func (b *Builder) Vendor(ctx context.Context) (*Result, error) {
	start := time.Now()

	gathered, err := b.gather(ctx)
	if err != nil {
		return nil, err
	}
	res, err := b.link(ctx, gathered, b.cfg.Root)
	if err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	b.logger.Info("vendor complete", "modules", res.Graph.Len(), "duration", res.Duration.Round(time.Millisecond))
	return res, nil
}

// Resolve resolves spec against the import map and the source tree as the
// build would. A relative referrer is taken relative to the root; an empty
// one means the root itself.
func (b *Builder) Resolve(ctx context.Context, spec, referrer string) (string, error) {
	gathered, err := b.gather(ctx)
	if err != nil {
		return "", err
	}
	resolver, err := b.resolver(gathered, b.cfg.Root)
	if err != nil {
		return "", err
	}

	base := dirURL(b.cfg.Root)
	switch {
	case referrer == "":
		referrer = base.String()
	case !strings.Contains(referrer, ":"):
		ref, err := base.Parse(filepath.ToSlash(referrer))
		if err != nil {
			return "", fmt.Errorf("invalid referrer %q: %w", referrer, err)
		}
		referrer = ref.String()
	}

	resolved, err := resolver.Resolve(spec, referrer)
	if err != nil {
		return "", issue.NewErrorContext().
			WithOperation("resolve specifier").
			WithResource(spec).
			WithIssue(issue.UnresolvedSpecifierId).
			Wrap(err).
			BuildError()
	}
	return resolved, nil
}

func (b *Builder) gather(ctx context.Context) (*source.Set, error) {
	b.logger.Debug("gathering sources", "root", b.cfg.Root)
	sources, err := source.Gather(ctx, b.cfg.Root, b.ignore)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("gather sources").
			WithResource(b.cfg.Root).
			WithSuggestion("Check that root points at an existing directory").
			Wrap(err).
			BuildError()
	}
	b.logger.Debug("gathered sources", "count", sources.Len())
	return sources, nil
}

func (b *Builder) copySources(sources *source.Set) (*source.Set, error) {
	b.logger.Info("copying sources", "count", sources.Len())

	copied := source.NewSet()
	for _, src := range sources.All() {
		var (
			out *source.File
			err error
		)
		if b.contentHash.MustTest(src.RelativePath()) {
			out, err = source.CopyToHashed(src, b.cfg.Output)
		} else {
			out, err = source.CopyTo(src, b.cfg.Output)
		}
		if err != nil {
			return nil, outputError(err, b.cfg.Output)
		}
		b.logger.Debug("copied", "from", src.RelativePath(), "to", source.OutputPath(out))
		copied.Add(out)
	}
	return copied, nil
}

func (b *Builder) compileSources(ctx context.Context, sources *source.Set) (*source.Set, error) {
	compilable, err := sources.Matches(b.compile)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("compiling sources", "count", compilable.Len())

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(b.concurrency())
	for _, src := range compilable.All() {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			started := time.Now()
			if err := b.compiler.Compile(src); err != nil {
				return issue.NewErrorContext().
					WithOperation("compile source").
					WithResource(src.RelativePath()).
					WithIssue(issue.CompileFailedId).
					Wrap(err).
					BuildError()
			}
			b.logger.Debug("compiled", "source", src.RelativePath(), "duration", time.Since(started).Round(time.Microsecond))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return compilable, nil
}

// link builds the graph for the entrypoints in sources, vendors remote
// modules below outDir and writes the import map there. When outDir is the
// root the import map gets a ".vendor" suffix so the input map survives.
func (b *Builder) link(ctx context.Context, sources *source.Set, outDir string) (*Result, error) {
	resolver, err := b.resolver(sources, outDir)
	if err != nil {
		return nil, err
	}

	policy := load.PolicyDefault
	if b.cfg.Reload {
		policy = load.PolicyReload
	}
	target, err := load.ParseTarget(string(b.cfg.Target))
	if err != nil {
		return nil, err
	}
	loader, err := load.New(load.Options{
		Sources:             sources,
		Fetcher:             b.fetcher,
		Policy:              policy,
		Target:              target,
		DynamicImportIgnore: b.dynamicIgnore,
		Logger:              b.logger,
	})
	if err != nil {
		return nil, err
	}

	entrypoints, err := sources.Matches(b.entrypoints)
	if err != nil {
		return nil, err
	}
	if entrypoints.Len() == 0 {
		return nil, issue.NewErrorContext().
			WithOperation("build module graph").
			WithSuggestion("Set entrypoints, e.g. [\"./client.tsx\"]").
			Wrap(ErrNoEntrypoints).
			BuildError()
	}
	roots := make([]string, 0, entrypoints.Len())
	for _, src := range entrypoints.All() {
		roots = append(roots, src.URL().String())
	}

	b.logger.Info("building module graph", "entrypoints", len(roots))
	dynamic := &load.DynamicImports{}
	crawler := &graph.Crawler{Concurrency: b.cfg.Concurrency, Logger: b.logger}
	g, err := crawler.Build(ctx, roots, loader.GraphLoader(dynamic), resolver.Resolve)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("build module graph").
			WithIssue(issue.UnresolvedSpecifierId).
			Wrap(err).
			BuildError()
	}
	for _, root := range roots {
		if _, ok := g.Get(root); !ok {
			return nil, issue.NewErrorContext().
				WithOperation("build module graph").
				WithResource(root).
				WithIssue(issue.GraphInconsistentId).
				Wrap(ErrEntrypointMissing).
				BuildError()
		}
	}
	b.logger.Debug("module graph built", "modules", g.Len(), "redirects", len(g.Redirects), "dynamic", dynamic.Len())

	bare := resolve.ResolveBareSpecifierRedirects(resolver.Bare(), g.Redirects)

	res := &Result{Sources: sources, Graph: g, DynamicImports: dynamic.Set()}

	in := synth.Input{Graph: g, Sources: sources, Bare: bare}
	if b.cfg.Vendor.Enabled {
		mapping, err := vendor.NewMapping(g.RemoteSpecifiers())
		if err != nil {
			return nil, err
		}
		dir := filepath.Join(outDir, b.cfg.Vendor.Path, string(b.cfg.Target))
		b.logger.Info("vendoring", "modules", mapping.Len(), "dir", dir)
		res.Vendored, err = vendor.Write(ctx, g, mapping, dir)
		if err != nil {
			return nil, issue.Wrap(issue.VendorWriteFailedId, err, "vendor remote modules", dir)
		}
		in.Mapping = mapping
		in.VendorPrefix = b.cfg.VendorPrefix()
	}

	res.ImportMap, err = synth.Synthesize(in)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("synthesize import map").
			WithIssue(issue.GraphInconsistentId).
			Wrap(err).
			BuildError()
	}

	res.ImportMapPath = filepath.Join(outDir, b.importMapName(outDir))
	data, err := res.ImportMap.MarshalIndent()
	if err != nil {
		return nil, err
	}
	if err := writeFile(res.ImportMapPath, data); err != nil {
		return nil, outputError(err, outDir)
	}
	b.logger.Info("wrote import map", "path", res.ImportMapPath, "imports", res.ImportMap.Imports.Len(), "scopes", res.ImportMap.Scopes.Len())

	return res, nil
}

// resolver reads the input import map and resolves its relative addresses
// against baseDir.
func (b *Builder) resolver(sources *source.Set, baseDir string) (*resolve.Resolver, error) {
	path := b.cfg.ImportMapPath()
	im, err := importmap.ReadFile(path)
	if err != nil {
		ec := issue.NewErrorContext().
			WithOperation("read import map").
			WithResource(path).
			Wrap(err)
		if errors.Is(err, fs.ErrNotExist) {
			ec.WithIssue(issue.ImportMapNotFoundId)
		} else {
			ec.WithIssue(issue.ImportMapInvalidId)
		}
		return nil, ec.BuildError()
	}

	return resolve.New(resolve.Options{
		ImportMap: im,
		BaseURL:   dirURL(baseDir),
		Sources:   sources,
		Logger:    b.logger,
	}), nil
}

func (b *Builder) importMapName(outDir string) string {
	name := filepath.Base(b.cfg.ImportMap)
	if filepath.Clean(outDir) != filepath.Clean(b.cfg.Root) {
		return name
	}
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".vendor" + ext
}

func (b *Builder) concurrency() int {
	if b.cfg.Concurrency > 0 {
		return b.cfg.Concurrency
	}
	return runtime.GOMAXPROCS(0)
}

// dirURL returns the file URL of dir with a trailing slash.
func dirURL(dir string) *url.URL {
	u := source.FileURL(dir)
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func outputError(err error, dir string) error {
	return issue.Wrap(issue.OutputNotWritableId, err, "write build output", dir)
}
