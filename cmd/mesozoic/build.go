// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesozoic/mesozoic/internal/build"
	"github.com/mesozoic/mesozoic/internal/watch"
)

func newBuildCommand(app *App, flags *globalFlags) *cobra.Command {
	var (
		reload   bool
		clean    bool
		watching bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the project into the output directory",
		Long: `Build the project into the output directory.

Sources are copied (content-hashed where configured), compiled, crawled from
the entrypoints, vendored, and tied together with a generated import map and
a manifest of the copied files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			if reload {
				cfg.Reload = true
			}

			b, err := app.newBuilder(cfg, flags, clean)
			if err != nil {
				return err
			}
			res, err := b.Build(cmd.Context())
			if watching {
				if err != nil {
					printFailure(app, "Build", err)
					app.renderError(err, flags.verbose)
				} else {
					printSummary(app, "Built", res)
				}
				return watchAndRebuild(cmd.Context(), app, b, flags)
			}
			if err != nil {
				return err
			}

			printSummary(app, "Built", res)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&reload, "reload", "r", false, "bypass the remote module cache")
	cmd.Flags().BoolVar(&clean, "clean", false, "remove the output directory before building")
	cmd.Flags().BoolVarP(&watching, "watch", "w", false, "rebuild when sources change")

	return cmd
}

// watchAndRebuild rebuilds on every change below the root until ctx is done.
// Failed rebuilds are reported and watching continues.
func watchAndRebuild(ctx context.Context, app *App, b *build.Builder, flags *globalFlags) error {
	cfg := b.Config()
	logger := app.newLogger(cfg, flags)

	w, err := watch.New(watch.Config{
		Root:   cfg.Root,
		Ignore: b.Ignore(),
		Logger: logger,
		OnChange: func(ctx context.Context, changed []string) error {
			logger.Debug("rebuilding", "changed", changed)
			res, err := b.Build(ctx)
			if err != nil {
				printFailure(app, "Rebuild", err)
				app.renderError(err, flags.verbose)
				return err
			}
			printSummary(app, "Rebuilt", res)
			return nil
		},
	})
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(app.stdout, "%s %s\n", SubtitleStyle.Render("watching"), PathStyle.Render(cfg.Root))
	return w.Run(ctx)
}

func printSummary(app *App, verb string, res *build.Result) {
	vendored := 0
	if res.Vendored != nil {
		vendored = len(res.Vendored.Vendored)
	}
	_, _ = fmt.Fprintf(app.stdout, "%s %s %d modules (%d vendored) in %s\n",
		SuccessStyle.Render("✓"), verb, res.Graph.Len(), vendored, res.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(app.stdout, "  import map: %s\n", PathStyle.Render(res.ImportMapPath))
	if n := res.DynamicImports.Len(); n > 0 {
		_, _ = fmt.Fprintf(app.stdout, "  dynamic imports: %d\n", n)
	}
}

// printFailure reports a build that failed while watching, where no command
// error reaches fang.
func printFailure(app *App, verb string, err error) {
	_, _ = fmt.Fprintf(app.stderr, "%s %s failed: %v\n", ErrorStyle.Render("✗"), verb, err)
}
