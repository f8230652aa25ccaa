// Package logging builds the slog loggers used across harvest.
//
// Console output is a single line per record with the component, the short
// run id and the file in flight pulled to the front; JSON output keeps every
// field. Context helpers tag records with the run and the file being
// extracted. NewNop serves tests and wiring code that cannot fail.
package logging
