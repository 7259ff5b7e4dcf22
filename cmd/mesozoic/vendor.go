// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVendorCommand(app *App, flags *globalFlags) *cobra.Command {
	var reload bool

	cmd := &cobra.Command{
		Use:   "vendor",
		Short: "Vendor remote modules into the project directory",
		Long: `Vendor remote modules into the project directory.

The module graph is built from the sources as they are, without copying or
compiling. Remote modules are written below <root>/<vendor.path>/<target> and
the import map is written next to the input one with a ".vendor" suffix.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			if reload {
				cfg.Reload = true
			}
			cfg.Vendor.Enabled = true

			b, err := app.newBuilder(cfg, flags, false)
			if err != nil {
				return err
			}
			res, err := b.Vendor(cmd.Context())
			if err != nil {
				return err
			}

			printSummary(app, "Vendored", res)
			if res.Vendored == nil || len(res.Vendored.Vendored) == 0 {
				_, _ = fmt.Fprintf(app.stdout, "%s no remote modules to vendor\n", WarningStyle.Render("!"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&reload, "reload", "r", false, "bypass the remote module cache")

	return cmd
}
