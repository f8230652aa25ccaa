package discovery

import (
	"path/filepath"
	"strings"
)

const alternateStreamSuffix = "zone.identifier"

// FilterOptions configures the candidate filter.
type FilterOptions struct {
	// ArchiveExtensions are lowercase, dot-prefixed extensions treated as archives.
	ArchiveExtensions []string
}

// Filter partitions entries into candidates and skipped entries. Rules apply in
// order and the first match wins: hidden, alternate data stream, archive,
// unsupported extension. Everything else is a candidate.
func Filter(entries []Entry, opts FilterOptions) Partition {
	archives := make(map[string]struct{}, len(opts.ArchiveExtensions))
	for _, ext := range opts.ArchiveExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		archives[ext] = struct{}{}
	}

	part := Partition{
		Candidates: make([]Candidate, 0, len(entries)),
		Skipped:    make([]Skipped, 0),
	}
	for _, entry := range entries {
		if reason, skip := classify(entry.Name, archives); skip {
			part.Skipped = append(part.Skipped, Skipped{Entry: entry, Reason: reason})
			continue
		}
		part.Candidates = append(part.Candidates, Candidate{
			Path:     entry.Path,
			RelPath:  entry.RelPath,
			Name:     entry.Name,
			Modality: entry.Modality,
			Format:   FormatFromName(entry.Name),
		})
	}
	return part
}

func classify(name string, archives map[string]struct{}) (SkipReason, bool) {
	if strings.HasPrefix(name, ".") {
		return SkipHidden, true
	}
	lower := strings.ToLower(name)
	if strings.Contains(name, ":") || strings.HasSuffix(lower, alternateStreamSuffix) {
		return SkipAlternateStream, true
	}
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := archives[ext]; ok {
		return SkipArchive, true
	}
	if FormatFromName(name) == FormatUnknown {
		return SkipUnsupportedExtension, true
	}
	return "", false
}
