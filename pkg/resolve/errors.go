// SPDX-License-Identifier: MPL-2.0

package resolve

import "fmt"

// ResolutionError reports a specifier that could not be resolved from its referrer.
type ResolutionError struct {
	Specifier string
	Referrer  string
	Err       error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not resolve %s from %s: %v", e.Specifier, e.Referrer, e.Err)
	}
	return fmt.Sprintf("could not resolve %s from %s", e.Specifier, e.Referrer)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
