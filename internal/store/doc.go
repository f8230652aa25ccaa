// Package store persists the output hierarchy as a single SQLite artifact.
//
// A run writes every table into a partial file beside the target inside one
// transaction and renames it over the target only after the database is
// closed, so readers never observe a half-written artifact. The same package
// reads artifacts back for inspection and export.
//
// Schema (see schema.sql):
//   - runs: one row describing the run that produced the artifact
//   - modalities and nodes: the (modality, label) hierarchy
//   - node_attributes and channel_attributes: typed key/value rows
//   - channels: little-endian float64 sample blobs
package store
