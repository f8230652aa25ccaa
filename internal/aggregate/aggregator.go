package aggregate

import (
	"fmt"

	"harvest/internal/descriptor"
	"harvest/internal/discovery"
	"harvest/internal/errkind"
	"harvest/internal/extract"
)

// extractorPrefix is prepended to extractor metadata keys that clash with a
// required attribute.
const extractorPrefix = "extractor."

// Aggregator builds a Tree from accepted outcomes.
type Aggregator struct {
	tree Tree
}

// New returns an empty aggregator.
func New() *Aggregator {
	return &Aggregator{}
}

// Add places one outcome under (candidate.Modality, desc.Label()). Failure
// outcomes never reach the aggregator; passing one is a programming error.
func (a *Aggregator) Add(candidate discovery.Candidate, desc descriptor.Descriptor, outcome extract.Outcome) error {
	switch outcome.Kind {
	case extract.KindSuccess, extract.KindMetadataOnly:
	default:
		return errkind.Wrap(errkind.ErrStructural, "aggregate", "add",
			fmt.Sprintf("%s outcome for %s cannot be aggregated", outcome.Kind, candidate.RelPath), nil)
	}

	label := desc.Label()
	group := a.tree.AddGroup(candidate.Modality)
	if existing, ok := group.Node(label); ok {
		return errkind.Wrap(errkind.ErrStructural, "aggregate", "add",
			fmt.Sprintf("descriptor key %s/%s produced by both %s and %s",
				candidate.Modality, label, existing.RelPath, candidate.RelPath), nil)
	}

	var attrs extract.Metadata
	attrs.Set(AttrSourceFile, candidate.Name)
	attrs.Set(AttrRelativePath, candidate.RelPath)
	attrs.Set(AttrFormat, string(candidate.Format))
	attrs.Set(AttrModality, candidate.Modality)
	attrs.Set(AttrLoad, desc.Load)
	attrs.Set(AttrCondition, desc.Condition)
	attrs.Set(AttrSeverity, desc.SeverityOrDefault())
	attrs.Set(AttrLabel, label)
	attrs.Set(AttrOutcome, string(outcome.Kind))
	for _, attr := range outcome.Metadata {
		key := attr.Key
		if _, clash := attrs.Get(key); clash {
			key = extractorPrefix + key
		}
		attrs.Set(key, attr.Value)
	}
	if outcome.Kind == extract.KindSuccess {
		attrs.Set(AttrTimestampOrigin, TimestampOrigin(attrs))
	}

	group.AddNode(&Node{
		Modality:   candidate.Modality,
		Label:      label,
		Descriptor: desc,
		SourceFile: candidate.Path,
		RelPath:    candidate.RelPath,
		Format:     candidate.Format,
		Outcome:    outcome.Kind,
		Attributes: attrs,
		Channels:   outcome.Channels,
	})
	return nil
}

// Tree returns the hierarchy built so far.
func (a *Aggregator) Tree() *Tree {
	return &a.tree
}
