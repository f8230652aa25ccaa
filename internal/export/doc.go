// Package export converts a written artifact into per-node CSV files for
// tools that cannot read SQLite. Each node with channels becomes
// <out>/<modality>/<label>.csv holding a Timestamp column followed by one
// column per channel.
package export
