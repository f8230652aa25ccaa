// Package tdms reads National Instruments TDMS files.
//
// Decode walks every segment, tracks the object list and raw data indexes the
// way the format's incremental metadata requires, and records where each
// channel's samples live. Samples are only converted when ReadFloat64 is
// called, so a file whose metadata is intact always opens even when some
// channels carry unreadable data (DAQmx raw buffers, non-numeric types). A
// final segment left incomplete by an interrupted acquisition is tolerated:
// whole values that made it to disk are kept.
package tdms
