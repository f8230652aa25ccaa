package reconcile

import (
	"errors"
	"fmt"

	"harvest/internal/discovery"
	"harvest/internal/errkind"
	"harvest/internal/extract"
)

// State is the lifecycle of a Counter.
type State string

const (
	StateIdle         State = "idle"
	StateAccumulating State = "accumulating"
	StateReconciled   State = "reconciled"
)

var (
	// ErrNotReconciled is returned when totals are read before Reconcile ran.
	ErrNotReconciled = errors.New("counter not reconciled")
	// ErrAlreadyReconciled is returned when a reconciled counter is mutated.
	ErrAlreadyReconciled = errors.New("counter already reconciled")
)

// Entry is one file remembered in a bucket list.
type Entry struct {
	Path     string `json:"path" yaml:"path"`
	RelPath  string `json:"relative_path" yaml:"relative_path"`
	Modality string `json:"modality,omitempty" yaml:"modality,omitempty"`
	// Reason is the failure or skip reason; empty for the other buckets.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Lists holds the files counted into each bucket, in the order they were seen.
type Lists struct {
	Success      []Entry `json:"success" yaml:"success"`
	MetadataOnly []Entry `json:"metadata_only" yaml:"metadata_only"`
	Failure      []Entry `json:"failure" yaml:"failure"`
	Skipped      []Entry `json:"skipped" yaml:"skipped"`
}

// Counter accumulates per-file outcomes for one pass.
type Counter struct {
	state      State
	discovered int
	attempted  int
	totals     Totals
	lists      Lists
}

// NewCounter returns an idle counter for a pass that found discovered entries
// and will attempt extraction on attempted of them.
func NewCounter(discovered, attempted int) *Counter {
	return &Counter{
		state:      StateIdle,
		discovered: discovered,
		attempted:  attempted,
	}
}

// State reports the current lifecycle state.
func (c *Counter) State() State {
	return c.state
}

// Record counts one attempted candidate into the bucket matching the outcome.
func (c *Counter) Record(candidate discovery.Candidate, outcome extract.Outcome) error {
	if err := c.begin(); err != nil {
		return err
	}
	entry := Entry{Path: candidate.Path, RelPath: candidate.RelPath, Modality: candidate.Modality}
	switch outcome.Kind {
	case extract.KindSuccess:
		c.totals.Success++
		c.lists.Success = append(c.lists.Success, entry)
	case extract.KindMetadataOnly:
		c.totals.MetadataOnly++
		c.lists.MetadataOnly = append(c.lists.MetadataOnly, entry)
	case extract.KindFailure:
		entry.Reason = outcome.Reason
		c.totals.Failure++
		c.lists.Failure = append(c.lists.Failure, entry)
	default:
		return errkind.Wrap(errkind.ErrStructural, "reconcile", "record",
			fmt.Sprintf("unknown outcome kind %q for %s", outcome.Kind, candidate.RelPath), nil)
	}
	return nil
}

// Skip counts one entry the filter excluded.
func (c *Counter) Skip(skipped discovery.Skipped) error {
	if err := c.begin(); err != nil {
		return err
	}
	c.totals.Skipped++
	c.lists.Skipped = append(c.lists.Skipped, Entry{
		Path:     skipped.Path,
		RelPath:  skipped.RelPath,
		Modality: skipped.Modality,
		Reason:   string(skipped.Reason),
	})
	return nil
}

func (c *Counter) begin() error {
	switch c.state {
	case StateReconciled:
		return ErrAlreadyReconciled
	case StateIdle:
		c.state = StateAccumulating
	}
	return nil
}

// Reconcile checks both identities exactly once and freezes the counter. The
// totals stay readable when a check fails so the caller can still report them.
func (c *Counter) Reconcile() error {
	if c.state == StateReconciled {
		return ErrAlreadyReconciled
	}
	c.totals.Attempted = c.attempted
	c.totals.Discovered = c.discovered
	c.state = StateReconciled

	var failed []error
	for _, check := range c.totals.Checks() {
		if check.OK {
			continue
		}
		failed = append(failed, fmt.Errorf("%s does not hold: %s", check.Name, check.Equation))
	}
	if len(failed) == 0 {
		return nil
	}
	return errkind.Wrap(errkind.ErrStructural, "reconcile", "identity check", "", errors.Join(failed...))
}

// Totals returns the bucket counts once the counter is reconciled.
func (c *Counter) Totals() (Totals, error) {
	if c.state != StateReconciled {
		return Totals{}, ErrNotReconciled
	}
	return c.totals, nil
}

// Lists returns copies of the per-bucket file lists once reconciled.
func (c *Counter) Lists() (Lists, error) {
	if c.state != StateReconciled {
		return Lists{}, ErrNotReconciled
	}
	return Lists{
		Success:      append([]Entry(nil), c.lists.Success...),
		MetadataOnly: append([]Entry(nil), c.lists.MetadataOnly...),
		Failure:      append([]Entry(nil), c.lists.Failure...),
		Skipped:      append([]Entry(nil), c.lists.Skipped...),
	}, nil
}
