// SPDX-License-Identifier: MPL-2.0

package importmap

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/tidwall/jsonc"
)

// Parse strips comments and trailing commas from data and decodes it as an
// import map document.
func Parse(data []byte) (*ImportMap, error) {
	var im ImportMap
	if err := json.Unmarshal(jsonc.ToJSON(data), &im); err != nil {
		return nil, fmt.Errorf("parsing import map: %w", err)
	}
	if im.Imports == nil {
		im.Imports = NewSpecifierMap()
	}
	if im.Scopes == nil {
		im.Scopes = NewScopeMap()
	}
	return &im, nil
}

// ReadFile reads and parses the import map at path.
func ReadFile(path string) (*ImportMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	im, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return im, nil
}

// Normalized is an import map whose keys and addresses have been resolved
// against a base URL, ready for resolution.
type Normalized struct {
	imports []entry
	scopes  []scope

	// Warnings lists the entries that were dropped or blocked while normalizing.
	Warnings []string
}

type entry struct {
	key     string
	address *url.URL // nil when blocked
}

type scope struct {
	prefix  string
	imports []entry
}

// Normalize resolves the keys and addresses of im against base.
func Normalize(im *ImportMap, base *url.URL) *Normalized {
	n := &Normalized{}
	if im == nil {
		return n
	}

	n.imports = n.normalizeSpecifierMap(im.Imports, base)

	for _, prefix := range im.Scopes.Keys() {
		u, err := base.Parse(prefix)
		if err != nil {
			n.Warnings = append(n.Warnings, fmt.Sprintf("invalid scope prefix %q: %v", prefix, err))
			continue
		}
		inner, _ := im.Scopes.Get(prefix)
		n.scopes = append(n.scopes, scope{
			prefix:  u.String(),
			imports: n.normalizeSpecifierMap(inner, base),
		})
	}

	return n
}

func (n *Normalized) normalizeSpecifierMap(m *SpecifierMap, base *url.URL) []entry {
	out := make([]entry, 0, m.Len())
	for _, key := range m.Keys() {
		if key == "" {
			n.Warnings = append(n.Warnings, "empty specifier key")
			continue
		}
		normalizedKey := key
		if u := parseURLLike(key, base); u != nil {
			normalizedKey = u.String()
		}

		value, _ := m.Get(key)
		address := parseURLLike(value, base)
		switch {
		case value == "" || address == nil:
			n.Warnings = append(n.Warnings, fmt.Sprintf("invalid address %q for specifier %q", value, key))
			address = nil
		case strings.HasSuffix(key, "/") && !strings.HasSuffix(address.String(), "/"):
			n.Warnings = append(n.Warnings, fmt.Sprintf("address %q for package specifier %q must end with /", value, key))
			address = nil
		}

		out = append(out, entry{key: normalizedKey, address: address})
	}
	return out
}

// parseURLLike returns the URL a specifier denotes on its own: an absolute URL,
// or a "/", "./" or "../" path resolved against base. Anything else is bare and yields nil.
func parseURLLike(specifier string, base *url.URL) *url.URL {
	if strings.HasPrefix(specifier, "/") || strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") {
		u, err := base.Parse(specifier)
		if err != nil {
			return nil
		}
		return u
	}

	u, err := url.Parse(specifier)
	if err != nil || u.Scheme == "" {
		return nil
	}
	return u
}
