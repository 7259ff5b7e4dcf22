// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/mesozoic/mesozoic/pkg/patterns"
)

const (
	// TargetBrowser requests remote modules built for browsers.
	TargetBrowser Target = "browser"
	// TargetDeno requests remote modules built for Deno.
	TargetDeno Target = "deno"

	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidTarget is returned when a Target value is not recognized.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidPath is the sentinel error wrapped by InvalidPathError.
	ErrInvalidPath = errors.New("invalid path")
	// ErrInvalidPatterns is the sentinel error wrapped by InvalidPatternsError.
	ErrInvalidPatterns = errors.New("invalid patterns")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// Target is the runtime remote modules are requested for.
	Target string

	// InvalidTargetError is returned when a Target value is not recognized.
	InvalidTargetError struct {
		Value Target
	}

	// LogLevel is the minimum level that is logged.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidPathError is returned for a missing, relative or conflicting path.
	InvalidPathError struct {
		Field  string
		Value  string
		Reason string
	}

	// InvalidPatternsError is returned when a pattern list does not compile.
	InvalidPatternsError struct {
		Field string
		Err   error
	}

	// InvalidConfigError collects every field error of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the build configuration.
	Config struct {
		// Root is the absolute source directory.
		Root string `json:"root" yaml:"root" toml:"root" mapstructure:"root"`
		// Output is the absolute directory the build is written to.
		Output string `json:"output" yaml:"output" toml:"output" mapstructure:"output"`
		// ImportMap is the input import map, relative to Root unless absolute.
		ImportMap string `json:"import_map" yaml:"import_map" toml:"import_map" mapstructure:"import_map"`

		Vendor VendorConfig `json:"vendor" yaml:"vendor" toml:"vendor" mapstructure:"vendor"`

		Target   Target   `json:"target" yaml:"target" toml:"target" mapstructure:"target"`
		Reload   bool     `json:"reload" yaml:"reload" toml:"reload" mapstructure:"reload"`
		LogLevel LogLevel `json:"log_level" yaml:"log_level" toml:"log_level" mapstructure:"log_level"`

		// Entrypoints select the sources the module graph is built from.
		Entrypoints         []string `json:"entrypoints" yaml:"entrypoints" toml:"entrypoints" mapstructure:"entrypoints"`
		Ignore              []string `json:"ignore" yaml:"ignore" toml:"ignore" mapstructure:"ignore"`
		DynamicImportIgnore []string `json:"dynamic_import_ignore" yaml:"dynamic_import_ignore" toml:"dynamic_import_ignore" mapstructure:"dynamic_import_ignore"`
		Compile             []string `json:"compile" yaml:"compile" toml:"compile" mapstructure:"compile"`
		ContentHash         []string `json:"content_hash" yaml:"content_hash" toml:"content_hash" mapstructure:"content_hash"`

		Manifest ManifestConfig `json:"manifest" yaml:"manifest" toml:"manifest" mapstructure:"manifest"`
		Compiler CompilerConfig `json:"compiler" yaml:"compiler" toml:"compiler" mapstructure:"compiler"`
		Cache    CacheConfig    `json:"cache" yaml:"cache" toml:"cache" mapstructure:"cache"`

		// Concurrency bounds parallel fetches; zero means the number of CPUs.
		Concurrency int `json:"concurrency" yaml:"concurrency" toml:"concurrency" mapstructure:"concurrency"`

		// File is the config file the values were read from, if any.
		File string `json:"-" yaml:"-" toml:"-" mapstructure:"-"`
	}

	VendorConfig struct {
		Enabled bool `json:"enabled" yaml:"enabled" toml:"enabled" mapstructure:"enabled"`
		// Path is the vendor directory below Output.
		Path string `json:"path" yaml:"path" toml:"path" mapstructure:"path"`
	}

	ManifestConfig struct {
		Exclude []string `json:"exclude" yaml:"exclude" toml:"exclude" mapstructure:"exclude"`
	}

	CompilerConfig struct {
		Minify     bool `json:"minify" yaml:"minify" toml:"minify" mapstructure:"minify"`
		SourceMaps bool `json:"source_maps" yaml:"source_maps" toml:"source_maps" mapstructure:"source_maps"`
	}

	CacheConfig struct {
		// Dir is the disk cache directory; empty means the user cache directory.
		Dir           string `json:"dir" yaml:"dir" toml:"dir" mapstructure:"dir"`
		MemoryEntries int    `json:"memory_entries" yaml:"memory_entries" toml:"memory_entries" mapstructure:"memory_entries"`
	}
)

// DefaultConfig returns the default configuration. Root and Output are
// relative until resolved against the project directory.
func DefaultConfig() *Config {
	return &Config{
		Root:      ".",
		Output:    "dist",
		ImportMap: "importMap.json",
		Vendor: VendorConfig{
			Enabled: true,
			Path:    "vendor",
		},
		Target:              TargetBrowser,
		LogLevel:            LogLevelInfo,
		Entrypoints:         []string{},
		Ignore:              []string{},
		DynamicImportIgnore: []string{},
		Compile:             []string{"./**/*.{ts,tsx,jsx}"},
		ContentHash:         []string{},
		Manifest:            ManifestConfig{Exclude: []string{}},
		Cache:               CacheConfig{MemoryEntries: 512},
	}
}

// ImportMapPath returns the absolute path of the input import map.
func (c *Config) ImportMapPath() string {
	if filepath.IsAbs(c.ImportMap) {
		return c.ImportMap
	}
	return filepath.Join(c.Root, c.ImportMap)
}

// VendorDir returns the absolute directory vendored modules are written to.
func (c *Config) VendorDir() string {
	return filepath.Join(c.Output, c.Vendor.Path, string(c.Target))
}

// VendorPrefix returns the import map prefix of vendored modules, e.g. "./vendor/browser/".
func (c *Config) VendorPrefix() string {
	return "./" + path.Join(filepath.ToSlash(c.Vendor.Path), string(c.Target)) + "/"
}

// Level returns the charmbracelet/log level for LogLevel.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(string(c.LogLevel))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// resolvePaths makes Root, Output and Cache.Dir absolute relative to base.
func (c *Config) resolvePaths(base string) error {
	for _, p := range []*string{&c.Root, &c.Output, &c.Cache.Dir} {
		if *p == "" || filepath.IsAbs(*p) {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(base, *p))
		if err != nil {
			return fmt.Errorf("resolving %s: %w", *p, err)
		}
		*p = abs
	}
	return nil
}

// IsValid reports whether c is usable for a build and returns the field errors.
func (c *Config) IsValid() (bool, []error) {
	var errs []error

	if c.Root == "" || !filepath.IsAbs(c.Root) {
		errs = append(errs, &InvalidPathError{Field: "root", Value: c.Root, Reason: "must be an absolute path"})
	}
	if c.Output == "" || !filepath.IsAbs(c.Output) {
		errs = append(errs, &InvalidPathError{Field: "output", Value: c.Output, Reason: "must be an absolute path"})
	} else if filepath.Clean(c.Output) == filepath.Clean(c.Root) {
		errs = append(errs, &InvalidPathError{Field: "output", Value: c.Output, Reason: "must differ from root"})
	}
	if strings.TrimSpace(c.ImportMap) == "" {
		errs = append(errs, &InvalidPathError{Field: "import_map", Value: c.ImportMap, Reason: "must be set"})
	}
	if c.Vendor.Enabled && strings.TrimSpace(c.Vendor.Path) == "" {
		errs = append(errs, &InvalidPathError{Field: "vendor.path", Value: c.Vendor.Path, Reason: "must be set when vendoring"})
	}
	if valid, fieldErrs := c.Target.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.LogLevel.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}

	for _, list := range []struct {
		field    string
		patterns []string
	}{
		{"entrypoints", c.Entrypoints},
		{"ignore", c.Ignore},
		{"dynamic_import_ignore", c.DynamicImportIgnore},
		{"compile", c.Compile},
		{"content_hash", c.ContentHash},
		{"manifest.exclude", c.Manifest.Exclude},
	} {
		if err := patterns.New(list.patterns...).Build(); err != nil {
			errs = append(errs, &InvalidPatternsError{Field: list.field, Err: err})
		}
	}

	if c.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("%w: concurrency must not be negative", ErrInvalidConfig))
	}
	if c.Cache.MemoryEntries < 0 {
		errs = append(errs, fmt.Errorf("%w: cache.memory_entries must not be negative", ErrInvalidConfig))
	}

	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Validate is IsValid as a single error.
func (c *Config) Validate() error {
	if valid, errs := c.IsValid(); !valid {
		return errs[0]
	}
	return nil
}

func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidPathError) Unwrap() error { return ErrInvalidPath }

func (e *InvalidPatternsError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *InvalidPatternsError) Unwrap() []error { return []error{ErrInvalidPatterns, e.Err} }

func (t Target) String() string { return string(t) }

// IsValid returns whether the Target is one of the defined targets.
func (t Target) IsValid() (bool, []error) {
	switch t {
	case TargetBrowser, TargetDeno:
		return true, nil
	default:
		return false, []error{&InvalidTargetError{Value: t}}
	}
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid target %q (valid: browser, deno)", e.Value)
}

func (e *InvalidTargetError) Unwrap() error { return ErrInvalidTarget }

func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }
