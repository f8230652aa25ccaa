// Package config loads, normalizes, and validates harvest configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HARVEST_DATASET_DIR. The Config type centralizes every knob the extraction
// pass needs: the dataset root and output store, the modality directory table,
// the condition alias table used to canonicalize filename spellings, and the
// per-format decoder settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical tables, and clear validation errors.
package config
