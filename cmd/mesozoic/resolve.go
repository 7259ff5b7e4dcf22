// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResolveCommand(app *App, flags *globalFlags) *cobra.Command {
	var referrer string

	cmd := &cobra.Command{
		Use:   "resolve <specifier>",
		Short: "Resolve a specifier the way a build would",
		Example: `  mesozoic resolve react
  mesozoic resolve ./util.ts --referrer src/app.ts`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			b, err := app.newBuilder(cfg, flags, false)
			if err != nil {
				return err
			}

			resolved, err := b.Resolve(cmd.Context(), args[0], referrer)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(app.stdout, resolved)
			return nil
		},
	}

	cmd.Flags().StringVar(&referrer, "referrer", "", "module the specifier is imported from, relative to the root")

	return cmd
}
