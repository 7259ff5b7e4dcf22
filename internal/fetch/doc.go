// SPDX-License-Identifier: MPL-2.0

// Package fetch retrieves remote modules over HTTP and caches successful
// responses.
//
// The cache has two layers: a bounded in-memory LRU and an optional on-disk
// store. Disk entries are keyed by the BLAKE3 digest of the requested URL and
// hold a CBOR envelope with a zstd-compressed body. Concurrent requests for
// the same URL share one network round trip.
package fetch
