// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/mesozoic/mesozoic/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "mesozoic",
		Short: "Build, vendor and import-map native ES module projects",
		Long: TitleStyle.Render("mesozoic") + SubtitleStyle.Render(" - build native ES module projects without a bundler") + `

mesozoic copies a source tree to an output directory, compiles TypeScript
and JSX, crawls the module graph from the entrypoints, vendors remote
modules and writes an import map that ties it all together.

` + SubtitleStyle.Render("Examples:") + `
  mesozoic build                 Build the project in the current directory
  mesozoic build --clean         Remove the output directory first
  mesozoic vendor                Vendor remote modules next to the sources
  mesozoic resolve react         Show where a specifier resolves to
  mesozoic config show           Show the effective configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default is mesozoic.{cue,toml,yaml,yml,json} in the root)")
	rootCmd.PersistentFlags().StringVar(&flags.root, "root", "", "project directory (default is the working directory)")

	rootCmd.AddCommand(newBuildCommand(app, flags))
	rootCmd.AddCommand(newVendorCommand(app, flags))
	rootCmd.AddCommand(newResolveCommand(app, flags))
	rootCmd.AddCommand(newConfigCommand(app, flags))

	// Errors are rendered here so the issue guide follows the message.
	for _, c := range rootCmd.Commands() {
		wrapRunE(c, app, flags)
	}

	return rootCmd
}

func wrapRunE(c *cobra.Command, app *App, flags *globalFlags) {
	for _, sub := range c.Commands() {
		wrapRunE(sub, app, flags)
	}
	run := c.RunE
	if run == nil {
		return
	}
	c.RunE = func(cmd *cobra.Command, args []string) error {
		err := run(cmd, args)
		if err == nil {
			return nil
		}
		app.renderError(err, flags.verbose)
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr
		}
		return &ExitError{Code: types.ExitFailure, Err: err}
	}
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	rootCmd := NewRootCommand(app)

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		switch {
		case errors.Is(err, context.Canceled):
			os.Exit(int(types.ExitInterrupted))
		case errors.As(err, &exitErr):
			os.Exit(int(exitErr.Code))
		}
		os.Exit(int(types.ExitFailure))
	}
}
