// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the CLI commands for mesozoic.
//
// The root command wires configuration loading, logging and error rendering;
// subcommands delegate to internal/build for the actual work.
package cmd
