// SPDX-License-Identifier: MPL-2.0

package load

import (
	"net/url"

	"github.com/mesozoic/mesozoic/pkg/lexer"
	"github.com/mesozoic/mesozoic/pkg/specifier"
)

// FacadeRedirect reports the module a facade at specifier stands in for.
//
// A facade only imports and re-exports. Registries such as esm.sh emit the
// fully resolved implementation as the last re-export, so that is the one
// followed. Relative re-exports are resolved against specifier.
func FacadeRedirect(spec, content string, lx lexer.Lexer) (string, bool) {
	if lx == nil {
		lx = lexer.Default{}
	}
	m := lx.Parse(content)
	if !m.Facade {
		return "", false
	}

	base, err := url.Parse(spec)
	if err != nil {
		return "", false
	}

	for i := len(m.Imports) - 1; i >= 0; i-- {
		imp := m.Imports[i]
		if imp.Kind != lexer.KindReexport {
			continue
		}
		u, err := base.Parse(imp.Specifier)
		if err != nil {
			return "", false
		}
		target := u.String()
		if !specifier.IsRemote(target) {
			return "", false
		}
		return target, true
	}

	return "", false
}

// PrepareRequestURL returns the URL to request for u. For esm.sh it drops
// development builds, disables type checking and sets the build target.
func PrepareRequestURL(u *url.URL, target Target) *url.URL {
	out := *u
	if u.Hostname() == "esm.sh" {
		q := out.Query()
		q.Del("dev")
		q.Set("no-check", "1")
		q.Set("target", target.esmTarget())
		out.RawQuery = q.Encode()
	}
	return &out
}
