// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// Errors carry the failed operation, the resource involved and remediation
// hints. Well-known failure modes are backed by a catalog of Markdown guides
// that the CLI renders when an error is linked to one of them.
package issue
