// SPDX-License-Identifier: MPL-2.0

// Package build drives a complete build: it gathers the source tree, copies
// it to the output directory (content-hashing where configured), compiles
// TypeScript and JSX, crawls the module graph from the entrypoints, vendors
// remote modules and writes the synthesized import map and a manifest.
package build
