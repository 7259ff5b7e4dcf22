// SPDX-License-Identifier: MPL-2.0

// Package config loads the build configuration using Viper.
//
// Settings come, in increasing precedence, from built-in defaults, a config
// file in the project root (mesozoic.cue, mesozoic.toml, mesozoic.yaml,
// mesozoic.yml or mesozoic.json), a .env file and MESOZOIC_* environment
// variables. CUE files are validated against an embedded schema
// (config_schema.cue); JSON files may contain comments and trailing commas.
package config
