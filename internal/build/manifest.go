// SPDX-License-Identifier: MPL-2.0

package build

import (
	"encoding/json"

	"github.com/mesozoic/mesozoic/pkg/patterns"
	"github.com/mesozoic/mesozoic/pkg/source"
)

type (
	// ManifestEntry maps a source's relative path to the path it was written to.
	// It encodes as a two element JSON array.
	ManifestEntry struct {
		Path   string
		Output string
	}

	// Manifest lists the copied sources of a build.
	Manifest []ManifestEntry
)

// NewManifest lists every source in sources whose relative path does not
// match exclude.
func NewManifest(sources *source.Set, exclude *patterns.Set) (Manifest, error) {
	m := Manifest{}
	for _, src := range sources.All() {
		if exclude != nil {
			skip, err := exclude.Test(src.RelativePath())
			if err != nil {
				return nil, err
			}
			if skip {
				continue
			}
		}
		m = append(m, ManifestEntry{Path: src.RelativePath(), Output: source.OutputPath(src)})
	}
	return m, nil
}

// Lookup returns the output path recorded for path.
func (m Manifest) Lookup(path string) (string, bool) {
	for _, e := range m {
		if e.Path == path {
			return e.Output, true
		}
	}
	return "", false
}

func (e ManifestEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{e.Path, e.Output})
}

func (e *ManifestEntry) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	e.Path, e.Output = pair[0], pair[1]
	return nil
}

// WriteFile writes the manifest as indented JSON.
func (m Manifest) WriteFile(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, append(data, '\n'))
}
