// SPDX-License-Identifier: MPL-2.0

// Package specifier classifies module specifiers.
//
// Every string is exactly one of four kinds, checked in order:
//   - remote: starts with "http://" or "https://"
//   - local: starts with "file:"
//   - relative: starts with "./" or "../"
//   - bare: anything else (package names, path-absolute "/x", ...)
package specifier

import (
	"net/url"
	"path"
	"strings"
)

// Kind identifies the kind of a module specifier.
const (
	KindBare Kind = iota
	KindRelative
	KindLocal
	KindRemote
)

// Kind is the classification of a specifier.
type Kind int

// moduleExtensions is the allow-list of extensions treated as direct module imports.
var moduleExtensions = []string{".js", ".jsx", ".ts", ".tsx", ".json", ".wasm"}

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindBare:
		return "bare"
	case KindRelative:
		return "relative"
	case KindLocal:
		return "local"
	case KindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// IsRemote reports whether s is an http(s) specifier.
func IsRemote(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// IsLocal reports whether s is a file: URL.
func IsLocal(s string) bool {
	return strings.HasPrefix(s, "file:")
}

// IsRelative reports whether s starts with "./" or "../".
func IsRelative(s string) bool {
	return strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../")
}

// IsBare reports whether s is none of remote, local or relative.
func IsBare(s string) bool {
	return Classify(s) == KindBare
}

// Classify returns the kind of s.
func Classify(s string) Kind {
	switch {
	case IsRemote(s):
		return KindRemote
	case IsLocal(s):
		return KindLocal
	case IsRelative(s):
		return KindRelative
	default:
		return KindBare
	}
}

// HasModuleExtension reports whether the path of s ends in one of the
// direct module extensions. Query and fragment are ignored.
func HasModuleExtension(s string) bool {
	ext := path.Ext(StripQuery(s))
	for _, e := range moduleExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// StripQuery removes the query string and fragment from s.
func StripQuery(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		return s[:i]
	}
	return s
}

// OriginRoot returns "scheme://host[:port]/" for u.
func OriginRoot(u *url.URL) string {
	return u.Scheme + "://" + u.Host + "/"
}

// IsTypeDeclaration reports whether the path of s names a .d.ts file.
func IsTypeDeclaration(s string) bool {
	return strings.Contains(StripQuery(s), ".d.ts")
}
