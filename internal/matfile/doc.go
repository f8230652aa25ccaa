// Package matfile reads MATLAB Level 5 MAT-files.
//
// The reader understands the subset produced by acquisition exports: numeric
// arrays of every class (converted to float64), char arrays, logical arrays,
// struct arrays, cell arrays, and zlib-compressed elements. Sparse and object
// arrays are recognised and skipped. HDF5-based v7.3 files are rejected.
//
// Numeric data keeps MATLAB's column-major layout; Column and Columns expose
// it per column.
package matfile
