// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesozoic/mesozoic/internal/config"
	"github.com/mesozoic/mesozoic/pkg/types"
)

// newConfigCommand creates the `mesozoic config` command tree.
func newConfigCommand(app *App, flags *globalFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect mesozoic configuration",
		Long: `Inspect mesozoic configuration.

Configuration is read from the first of mesozoic.cue, mesozoic.toml,
mesozoic.yaml, mesozoic.yml and mesozoic.json found in the root, then
overridden by MESOZOIC_* variables from .env and the environment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var format string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			out, err := config.Marshal(cfg, format)
			if err != nil {
				return &ExitError{Code: types.ExitUsage, Err: err}
			}
			_, _ = app.stdout.Write(out)
			return nil
		},
	}
	showCmd.Flags().StringVarP(&format, "format", "f", "cue", "output format (cue, toml, yaml, json)")
	cfgCmd.AddCommand(showCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			if cfg.File == "" {
				_, _ = fmt.Fprintln(app.stdout, SubtitleStyle.Render("(using defaults)"))
				return nil
			}
			_, _ = fmt.Fprintln(app.stdout, cfg.File)
			return nil
		},
	})

	return cfgCmd
}
