// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/mesozoic/mesozoic/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "mesozoic"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "mesozoic"
	// EnvPrefix prefixes every environment variable the config reads.
	EnvPrefix = "MESOZOIC"
	// DotEnvFileName is the env file read from the project root.
	DotEnvFileName = ".env"

	// maxConfigFileSize bounds config files (1 MB).
	maxConfigFileSize = 1 << 20
)

// ConfigFileExts lists the recognized config file extensions in lookup order.
var ConfigFileExts = []string{"cue", "toml", "yaml", "yml", "json"}

// ErrUnsupportedFormat is returned for config files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported config file format")

// loadWithOptions performs option-driven config loading.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	dir := opts.Root
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""

	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'mesozoic config show' to see the default configuration").
				WithIssue(issue.ConfigNotFoundId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		resolvedPath = findConfigFile(dir)
	}

	if resolvedPath != "" {
		if err := loadFileIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check the file syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithIssue(issue.ConfigInvalidId).
				Wrap(err).
				BuildError()
		}
	}

	if err := loadDotEnv(v, filepath.Join(dir, DotEnvFileName)); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("load environment file").
			WithResource(filepath.Join(dir, DotEnvFileName)).
			WithSuggestion("Check that every line is KEY=value").
			Wrap(err).
			BuildError()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", issue.Wrap(issue.ConfigInvalidId, err, "parse configuration", resolvedPath)
	}

	base := dir
	if resolvedPath != "" {
		base = filepath.Dir(resolvedPath)
	}
	if err := cfg.resolvePaths(base); err != nil {
		return nil, "", err
	}
	cfg.File = resolvedPath

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Fix the fields listed above").
			WithIssue(issue.ConfigInvalidId).
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// setDefaults registers every key so environment variables can override it.
func setDefaults(v *viper.Viper, defaults *Config) {
	v.SetDefault("root", defaults.Root)
	v.SetDefault("output", defaults.Output)
	v.SetDefault("import_map", defaults.ImportMap)
	v.SetDefault("vendor.enabled", defaults.Vendor.Enabled)
	v.SetDefault("vendor.path", defaults.Vendor.Path)
	v.SetDefault("target", string(defaults.Target))
	v.SetDefault("reload", defaults.Reload)
	v.SetDefault("log_level", string(defaults.LogLevel))
	v.SetDefault("entrypoints", defaults.Entrypoints)
	v.SetDefault("ignore", defaults.Ignore)
	v.SetDefault("dynamic_import_ignore", defaults.DynamicImportIgnore)
	v.SetDefault("compile", defaults.Compile)
	v.SetDefault("content_hash", defaults.ContentHash)
	v.SetDefault("manifest.exclude", defaults.Manifest.Exclude)
	v.SetDefault("compiler.minify", defaults.Compiler.Minify)
	v.SetDefault("compiler.source_maps", defaults.Compiler.SourceMaps)
	v.SetDefault("cache.dir", defaults.Cache.Dir)
	v.SetDefault("cache.memory_entries", defaults.Cache.MemoryEntries)
	v.SetDefault("concurrency", defaults.Concurrency)
}

// findConfigFile returns the first mesozoic.<ext> in dir, or "".
func findConfigFile(dir string) string {
	for _, ext := range ConfigFileExts {
		p := filepath.Join(dir, ConfigFileName+"."+ext)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

// loadFileIntoViper decodes a config file by extension and merges it into v.
func loadFileIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) > maxConfigFileSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", path, len(data), maxConfigFileSize)
	}

	var configMap map[string]any
	switch ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."); ext {
	case "cue":
		configMap, err = decodeCUE(data, path)
	case "toml":
		err = toml.Unmarshal(data, &configMap)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &configMap)
	case "json":
		err = json.Unmarshal(jsonc.ToJSON(data), &configMap)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// loadDotEnv applies MESOZOIC_* variables from the env file at path for
// every key that the process environment does not already set.
func loadDotEnv(v *viper.Viper, path string) error {
	if !fileExists(path) {
		return nil
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("failed to read env file: %w", err)
	}

	for _, key := range v.AllKeys() {
		name := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if value, ok := env[name]; ok {
			v.Set(key, value)
		}
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
