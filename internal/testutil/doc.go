// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers for tests that lay out project trees on
// disk, failing the test on any filesystem error.
package testutil
