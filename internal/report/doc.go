// Package report renders the end-of-run summary, dry-run plans, and artifact
// listings. Text output uses go-pretty tables and is colourised only when the
// destination is a terminal; JSON and YAML carry the same fields for scripts.
package report
