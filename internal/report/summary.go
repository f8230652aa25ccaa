package report

import (
	"sort"
	"time"

	"harvest/internal/errkind"
	"harvest/internal/pipeline"
	"harvest/internal/reconcile"
)

// Summary is the serialisable view of a run.
type Summary struct {
	RunID      string            `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time         `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time         `json:"finished_at" yaml:"finished_at"`
	Duration   string            `json:"duration" yaml:"duration"`
	DatasetDir string            `json:"dataset_dir" yaml:"dataset_dir"`
	OutputPath string            `json:"output_path" yaml:"output_path"`
	Written    bool              `json:"written" yaml:"written"`
	Nodes      int               `json:"nodes" yaml:"nodes"`
	Channels   int               `json:"channels" yaml:"channels"`
	Reconciled bool              `json:"reconciled" yaml:"reconciled"`
	Totals     reconcile.Totals  `json:"totals" yaml:"totals"`
	Checks     []reconcile.Check `json:"checks" yaml:"checks"`
	Files      reconcile.Lists   `json:"files" yaml:"files"`
	Error      string            `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind  string            `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
}

// FromResult builds a summary with every file list sorted by relative path.
func FromResult(r *pipeline.Result) Summary {
	if r == nil {
		return Summary{}
	}
	s := Summary{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Duration:   r.Duration().Round(time.Millisecond).String(),
		DatasetDir: r.DatasetDir,
		OutputPath: r.OutputPath,
		Written:    r.Written,
		Nodes:      r.Nodes,
		Channels:   r.Channels,
		Reconciled: r.Reconciled,
		Totals:     r.Totals,
		Checks:     r.Checks,
		Files: reconcile.Lists{
			Success:      sortedEntries(r.Lists.Success),
			MetadataOnly: sortedEntries(r.Lists.MetadataOnly),
			Failure:      sortedEntries(r.Lists.Failure),
			Skipped:      sortedEntries(r.Lists.Skipped),
		},
	}
	if r.Err != nil {
		s.Error = r.Err.Error()
		s.ErrorKind = errkind.Kind(r.Err)
	}
	return s
}

func sortedEntries(entries []reconcile.Entry) []reconcile.Entry {
	out := make([]reconcile.Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelPath < out[j].RelPath
	})
	return out
}

// Balanced reports whether the run reconciled and both identities held.
func (s Summary) Balanced() bool {
	if !s.Reconciled || len(s.Checks) == 0 {
		return false
	}
	for _, c := range s.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}
