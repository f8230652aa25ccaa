package pipeline

import (
	"context"

	"harvest/internal/config"
	"harvest/internal/descriptor"
	"harvest/internal/discovery"
	"harvest/internal/errkind"
)

// PlannedFile is one candidate as a run would see it before extraction.
type PlannedFile struct {
	Candidate  discovery.Candidate   `json:"candidate" yaml:"candidate"`
	Descriptor descriptor.Descriptor `json:"descriptor" yaml:"descriptor"`
	Label      string                `json:"label,omitempty" yaml:"label,omitempty"`
	// ParseError is set when the file name does not yield a descriptor; a run
	// would count the file as a failure.
	ParseError string `json:"parse_error,omitempty" yaml:"parse_error,omitempty"`
	// KnownCondition is false when the condition token is missing from the
	// alias table and was kept verbatim.
	KnownCondition bool `json:"known_condition" yaml:"known_condition"`
}

// Collision is a descriptor key produced by more than one candidate.
type Collision struct {
	Modality string   `json:"modality" yaml:"modality"`
	Label    string   `json:"label" yaml:"label"`
	Files    []string `json:"files" yaml:"files"`
}

// PlanResult is the outcome of a dry run.
type PlanResult struct {
	DatasetDir string              `json:"dataset_dir" yaml:"dataset_dir"`
	Discovered int                 `json:"discovered" yaml:"discovered"`
	Files      []PlannedFile       `json:"files" yaml:"files"`
	Skipped    []discovery.Skipped `json:"skipped" yaml:"skipped"`
	Collisions []Collision         `json:"collisions,omitempty" yaml:"collisions,omitempty"`
}

// Plan walks and filters the dataset root and parses every candidate name
// without opening any file.
func Plan(ctx context.Context, cfg *config.Config) (*PlanResult, error) {
	if cfg == nil {
		return nil, errkind.Wrap(errkind.ErrConfiguration, "pipeline", "plan", "config is required", nil)
	}
	parser, err := descriptor.NewParser(cfg.Conditions)
	if err != nil {
		return nil, errkind.Wrap(errkind.ErrConfiguration, "pipeline", "condition table", "", err)
	}
	entries, err := discovery.Walk(ctx, cfg.Paths.DatasetDir, cfg.Discovery.Modalities)
	if err != nil {
		return nil, err
	}
	part := discovery.Filter(entries, discovery.FilterOptions{ArchiveExtensions: cfg.Discovery.ArchiveExtensions})

	plan := &PlanResult{
		DatasetDir: cfg.Paths.DatasetDir,
		Discovered: len(entries),
		Files:      make([]PlannedFile, 0, len(part.Candidates)),
		Skipped:    part.Skipped,
	}
	type key struct{ modality, label string }
	firstFile := map[key]string{}
	collision := map[key]int{}
	for _, c := range part.Candidates {
		pf := PlannedFile{Candidate: c}
		desc, err := parser.Parse(c.Name)
		if err != nil {
			pf.ParseError = err.Error()
			plan.Files = append(plan.Files, pf)
			continue
		}
		pf.Descriptor = desc
		pf.Label = desc.Label()
		pf.KnownCondition = parser.Known(desc.Condition)
		plan.Files = append(plan.Files, pf)

		k := key{c.Modality, pf.Label}
		first, dup := firstFile[k]
		if !dup {
			firstFile[k] = c.RelPath
			continue
		}
		if idx, ok := collision[k]; ok {
			plan.Collisions[idx].Files = append(plan.Collisions[idx].Files, c.RelPath)
			continue
		}
		collision[k] = len(plan.Collisions)
		plan.Collisions = append(plan.Collisions, Collision{
			Modality: c.Modality,
			Label:    pf.Label,
			Files:    []string{first, c.RelPath},
		})
	}
	return plan, nil
}
