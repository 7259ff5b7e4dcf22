// SPDX-License-Identifier: MPL-2.0

package load

import (
	"fmt"
	"strings"
)

// Policy decides whether cached remote content may be reused.
type Policy uint8

const (
	// PolicyDefault serves remote modules from the cache when present.
	PolicyDefault Policy = iota
	// PolicyReload always fetches remote modules again.
	PolicyReload
)

func (p Policy) String() string {
	if p == PolicyReload {
		return "reload"
	}
	return "default"
}

// ParsePolicy parses "default" or "reload".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return PolicyDefault, nil
	case "reload":
		return PolicyReload, nil
	default:
		return PolicyDefault, fmt.Errorf("unknown load policy %q (expected default or reload)", s)
	}
}

// Target is the runtime remote modules are requested for.
type Target uint8

const (
	TargetBrowser Target = iota
	TargetDeno
)

func (t Target) String() string {
	if t == TargetDeno {
		return "deno"
	}
	return "browser"
}

// ParseTarget parses "browser" or "deno".
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "browser":
		return TargetBrowser, nil
	case "deno":
		return TargetDeno, nil
	default:
		return TargetBrowser, fmt.Errorf("unknown target %q (expected browser or deno)", s)
	}
}

// esmTarget is the value of the esm.sh "target" query parameter.
func (t Target) esmTarget() string {
	if t == TargetDeno {
		return "deno"
	}
	return "es2022"
}
