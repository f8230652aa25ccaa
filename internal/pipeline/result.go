package pipeline

import (
	"time"

	"harvest/internal/reconcile"
)

// Result describes a finished or aborted run.
type Result struct {
	RunID      string            `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time         `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time         `json:"finished_at" yaml:"finished_at"`
	DatasetDir string            `json:"dataset_dir" yaml:"dataset_dir"`
	OutputPath string            `json:"output_path" yaml:"output_path"`
	Totals     reconcile.Totals  `json:"totals" yaml:"totals"`
	Checks     []reconcile.Check `json:"checks" yaml:"checks"`
	Lists      reconcile.Lists   `json:"lists" yaml:"lists"`
	// Reconciled is false when the run aborted before the identity check.
	Reconciled bool `json:"reconciled" yaml:"reconciled"`
	// Written reports whether the artifact was published.
	Written  bool `json:"written" yaml:"written"`
	Nodes    int  `json:"nodes" yaml:"nodes"`
	Channels int  `json:"channels" yaml:"channels"`
	// Err is the fatal error that aborted the run, if any.
	Err error `json:"-" yaml:"-"`
}

// Duration returns the wall time of the run.
func (r *Result) Duration() time.Duration {
	if r == nil || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
