// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/mesozoic/mesozoic/internal/build"
	"github.com/mesozoic/mesozoic/internal/config"
	"github.com/mesozoic/mesozoic/internal/issue"
	"github.com/mesozoic/mesozoic/pkg/load"
	"github.com/mesozoic/mesozoic/pkg/types"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives it and goes through its services.
	App struct {
		Config  config.Provider
		Fetcher load.Fetcher
		stdout  io.Writer
		stderr  io.Writer
		// issueStyle is the glamour style used for issue guides.
		issueStyle string
	}

	// Dependencies defines the injection points for building an App. Nil fields
	// are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		// Fetcher overrides the caching HTTP client builds use.
		Fetcher    load.Fetcher
		Stdout     io.Writer
		Stderr     io.Writer
		IssueStyle string
	}

	// globalFlags are the persistent root flags.
	globalFlags struct {
		verbose    bool
		configPath string
		root       string
	}
)

// NewApp creates an App, filling in defaults for nil dependencies.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:     deps.Config,
		Fetcher:    deps.Fetcher,
		stdout:     deps.Stdout,
		stderr:     deps.Stderr,
		issueStyle: deps.IssueStyle,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	if app.issueStyle == "" {
		app.issueStyle = "dark"
	}
	return app
}

// loadConfig loads the configuration selected by the global flags.
func (a *App) loadConfig(ctx context.Context, flags *globalFlags) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: flags.configPath,
		Root:           flags.root,
	})
	if err != nil {
		return nil, &ExitError{Code: types.ExitUsage, Err: err}
	}
	return cfg, nil
}

// newLogger returns a stderr logger at the configured level, or debug with --verbose.
func (a *App) newLogger(cfg *config.Config, flags *globalFlags) *log.Logger {
	level := cfg.Level()
	if flags.verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix: config.AppName,
		Level:  level,
	})
}

// newBuilder creates a build.Builder for cfg.
func (a *App) newBuilder(cfg *config.Config, flags *globalFlags, clean bool) (*build.Builder, error) {
	b, err := build.New(build.Options{
		Config:  cfg,
		Fetcher: a.Fetcher,
		Clean:   clean,
		Logger:  a.newLogger(cfg, flags),
	})
	if err != nil {
		return nil, &ExitError{Code: types.ExitUsage, Err: err}
	}
	return b, nil
}

// renderError writes the details fang does not print for err: the full
// actionable message in verbose mode, then the matching issue guide.
func (a *App) renderError(err error, verbose bool) {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return
	}
	if verbose || ae.HasSuggestions() {
		_, _ = fmt.Fprintln(a.stderr, formatErrorForDisplay(err, verbose))
	}
	iss := ae.Issue()
	if iss == nil {
		return
	}
	rendered, renderErr := iss.Render(a.issueStyle)
	if renderErr != nil {
		return
	}
	_, _ = fmt.Fprint(a.stderr, rendered)
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
