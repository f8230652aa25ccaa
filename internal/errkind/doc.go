// Package errkind defines the error markers shared by the harvest pipeline.
//
// Every fatal error that leaves a run is tagged with one marker so the CLI and
// the summary renderer can tell a bad input file apart from a defect in the
// pipeline itself:
//   - ErrDecode marks a source file that could not be opened or parsed. It is
//     only ever carried inside a Failure outcome and never aborts a run.
//   - ErrStructural marks a reconciliation identity violation or a descriptor
//     key collision. It always aborts before the store is written.
//   - ErrSink marks a store that could not be created or written.
//   - ErrConfiguration marks unusable settings or a missing dataset root.
//
// Build errors with Wrap so messages carry the component and operation.
package errkind
