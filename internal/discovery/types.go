package discovery

import (
	"path/filepath"
	"strings"
)

// Format identifies the binary container of a candidate file.
type Format string

const (
	FormatUnknown Format = ""
	FormatMAT     Format = "mat"
	FormatTDMS    Format = "tdms"
)

// Fallback modality tags for files outside any recognised modality directory.
const (
	UnknownMATModality  = "MAT_Unknown_Path"
	UnknownTDMSModality = "TDMS_Unknown_Path"
	UnknownModality     = "Unknown_Path"
)

// FormatFromName detects the format from a file name's extension, case-insensitively.
func FormatFromName(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mat":
		return FormatMAT
	case ".tdms":
		return FormatTDMS
	default:
		return FormatUnknown
	}
}

// Entry is one regular file found beneath the dataset root.
type Entry struct {
	// Path is absolute.
	Path string
	// RelPath is relative to the dataset root, slash separated.
	RelPath  string
	Name     string
	Dir      string
	Modality string
}

// Candidate is a file eligible for exactly one extraction attempt.
// Its identity is Path.
type Candidate struct {
	Path     string
	RelPath  string
	Name     string
	Modality string
	Format   Format
}

// SkipReason names the filter rule that excluded an entry.
type SkipReason string

const (
	SkipHidden               SkipReason = "hidden"
	SkipAlternateStream      SkipReason = "alternate_stream"
	SkipArchive              SkipReason = "archive"
	SkipUnsupportedExtension SkipReason = "unsupported_extension"
)

// Skipped is an entry the filter excluded from extraction.
type Skipped struct {
	Entry
	Reason SkipReason
}

// Partition is the filter output. Candidates and Skipped preserve input order.
type Partition struct {
	Candidates []Candidate
	Skipped    []Skipped
}

// Total returns the number of entries the partition accounts for.
func (p Partition) Total() int {
	return len(p.Candidates) + len(p.Skipped)
}
