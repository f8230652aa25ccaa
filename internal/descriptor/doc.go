// Package descriptor derives the experimental condition encoded in a recording's
// file name.
//
// File names follow <load>Nm_<condition>[_<severity>].(mat|tdms). Condition
// tokens are resolved through an explicit alias table so that every spelling
// the acquisition software produced for one class maps to a single canonical
// label. Parsing is a pure function of the file name.
package descriptor
