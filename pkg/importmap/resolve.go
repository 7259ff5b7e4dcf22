// SPDX-License-Identifier: MPL-2.0

package importmap

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrBlocked is returned when a specifier matches an entry with an invalid address.
var ErrBlocked = errors.New("blocked by a null entry")

// Result is the outcome of resolving one specifier.
type Result struct {
	// URL is the resolved URL, or nil for an unmatched bare specifier.
	URL *url.URL
	// Matched reports whether an import map entry was applied.
	Matched bool
}

// Resolve resolves specifier as imported by the module at script.
// Scopes are consulted first, most specific prefix first, then the top-level
// imports. URL-like specifiers that match nothing resolve to themselves.
func (n *Normalized) Resolve(specifier string, script *url.URL) (Result, error) {
	asURL := parseURLLike(specifier, script)
	normalized := specifier
	if asURL != nil {
		normalized = asURL.String()
	}
	scriptURL := script.String()

	for _, sc := range n.scopesFor(scriptURL) {
		u, ok, err := matchImports(normalized, asURL, sc.imports)
		if err != nil {
			return Result{}, err
		}
		if ok {
			return Result{URL: u, Matched: true}, nil
		}
	}

	u, ok, err := matchImports(normalized, asURL, n.imports)
	if err != nil {
		return Result{}, err
	}
	if ok {
		return Result{URL: u, Matched: true}, nil
	}

	return Result{URL: asURL}, nil
}

// scopesFor returns the scopes applying to scriptURL, longest prefix first.
func (n *Normalized) scopesFor(scriptURL string) []scope {
	var out []scope
	for _, sc := range n.scopes {
		if sc.prefix == scriptURL || (strings.HasSuffix(sc.prefix, "/") && strings.HasPrefix(scriptURL, sc.prefix)) {
			out = append(out, sc)
		}
	}
	// Insertion sort keeps equal-length prefixes in document order.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && len(out[j].prefix) > len(out[j-1].prefix); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func matchImports(normalized string, asURL *url.URL, entries []entry) (*url.URL, bool, error) {
	var best *entry
	for i := range entries {
		e := &entries[i]
		if e.key == normalized {
			best = e
			break
		}
		if !strings.HasSuffix(e.key, "/") || !strings.HasPrefix(normalized, e.key) {
			continue
		}
		if asURL != nil && asURL.Opaque != "" {
			continue
		}
		if best == nil || len(e.key) > len(best.key) {
			best = e
		}
	}
	if best == nil {
		return nil, false, nil
	}
	if best.address == nil {
		return nil, false, fmt.Errorf("resolution of %q: %w", normalized, ErrBlocked)
	}
	if best.key == normalized {
		return best.address, true, nil
	}

	after := strings.TrimPrefix(normalized, best.key)
	u, err := best.address.Parse("./" + after)
	if err != nil {
		return nil, false, fmt.Errorf("resolution of %q: %w", normalized, err)
	}
	if !strings.HasPrefix(u.String(), best.address.String()) {
		return nil, false, fmt.Errorf("resolution of %q backtracks above %s", normalized, best.address)
	}
	return u, true, nil
}
