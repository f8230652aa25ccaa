// Package pipeline runs one extraction pass over a dataset root.
//
// Run checks that the root is readable and the artifact writable, walks the
// root, filters the listing, and hands every candidate through
// descriptor parsing and format extraction in discovery order on a single
// goroutine. Each outcome is counted exactly once; after the last file the
// counter is reconciled, accepted outcomes are aggregated, and only then is
// the artifact written. Any fatal error before the write leaves the previous
// artifact in place.
//
// Plan performs the same discovery and naming work without opening any file,
// for dry runs.
package pipeline
