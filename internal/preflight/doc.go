// Package preflight provides filesystem readiness checks run before a pass.
//
// These checks run in two contexts:
//   - pipeline.Run calls RunAll before discovery; any failed check aborts the
//     run as a configuration error, before the output lock is taken.
//   - The CLI "harvest config validate" command prints every result.
package preflight
