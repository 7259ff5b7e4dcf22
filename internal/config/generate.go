// SPDX-License-Identifier: MPL-2.0

package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Marshal renders cfg in one of the config file formats.
func Marshal(cfg *Config, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "cue":
		return []byte(GenerateCUE(cfg)), nil
	case "toml":
		return toml.Marshal(cfg)
	case "yaml", "yml":
		return yaml.Marshal(cfg)
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// mesozoic configuration\n\n")

	fmt.Fprintf(&sb, "root:       %q\n", cfg.Root)
	fmt.Fprintf(&sb, "output:     %q\n", cfg.Output)
	fmt.Fprintf(&sb, "import_map: %q\n", cfg.ImportMap)
	fmt.Fprintf(&sb, "target:     %q\n", cfg.Target)
	fmt.Fprintf(&sb, "reload:     %v\n", cfg.Reload)
	fmt.Fprintf(&sb, "log_level:  %q\n", cfg.LogLevel)
	if cfg.Concurrency > 0 {
		fmt.Fprintf(&sb, "concurrency: %d\n", cfg.Concurrency)
	}

	sb.WriteString("\nvendor: {\n")
	fmt.Fprintf(&sb, "\tenabled: %v\n", cfg.Vendor.Enabled)
	fmt.Fprintf(&sb, "\tpath:    %q\n", cfg.Vendor.Path)
	sb.WriteString("}\n")

	writeList(&sb, "", "entrypoints", cfg.Entrypoints)
	writeList(&sb, "", "ignore", cfg.Ignore)
	writeList(&sb, "", "dynamic_import_ignore", cfg.DynamicImportIgnore)
	writeList(&sb, "", "compile", cfg.Compile)
	writeList(&sb, "", "content_hash", cfg.ContentHash)

	if len(cfg.Manifest.Exclude) > 0 {
		sb.WriteString("\nmanifest: {\n")
		writeList(&sb, "\t", "exclude", cfg.Manifest.Exclude)
		sb.WriteString("}\n")
	}

	sb.WriteString("\ncompiler: {\n")
	fmt.Fprintf(&sb, "\tminify:      %v\n", cfg.Compiler.Minify)
	fmt.Fprintf(&sb, "\tsource_maps: %v\n", cfg.Compiler.SourceMaps)
	sb.WriteString("}\n")

	sb.WriteString("\ncache: {\n")
	if cfg.Cache.Dir != "" {
		fmt.Fprintf(&sb, "\tdir:            %q\n", cfg.Cache.Dir)
	}
	fmt.Fprintf(&sb, "\tmemory_entries: %d\n", cfg.Cache.MemoryEntries)
	sb.WriteString("}\n")

	return sb.String()
}

func writeList(sb *strings.Builder, indent, name string, values []string) {
	if len(values) == 0 {
		return
	}
	if indent == "" {
		sb.WriteString("\n")
	}
	fmt.Fprintf(sb, "%s%s: [\n", indent, name)
	for _, v := range values {
		fmt.Fprintf(sb, "%s\t%q,\n", indent, v)
	}
	fmt.Fprintf(sb, "%s]\n", indent)
}
