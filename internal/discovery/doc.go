// Package discovery turns a dataset root into the ordered list of files a run
// will account for.
//
// Walk lists every regular file beneath the root in lexical order and tags it
// with the modality of its nearest recognised ancestor directory. Filter then
// partitions that listing into extraction candidates and skipped entries
// (hidden files, alternate data stream markers, archives, unrecognised
// extensions). Filter is pure: every input entry lands in exactly one of the
// two outputs, which is what the end-of-run reconciliation relies on.
package discovery
