package reconcile

import "fmt"

// Identity names.
const (
	IdentityAttempted  = "attempted"
	IdentityDiscovered = "discovered"
)

// Totals are the bucket counts of a reconciled pass.
type Totals struct {
	Success      int `json:"success" yaml:"success"`
	MetadataOnly int `json:"metadata_only" yaml:"metadata_only"`
	Failure      int `json:"failure" yaml:"failure"`
	Skipped      int `json:"skipped" yaml:"skipped"`
	Attempted    int `json:"attempted" yaml:"attempted"`
	Discovered   int `json:"discovered" yaml:"discovered"`
}

// Check is the result of one identity check.
type Check struct {
	Name     string `json:"name" yaml:"name"`
	Equation string `json:"equation" yaml:"equation"`
	OK       bool   `json:"ok" yaml:"ok"`
}

// Checks evaluates both identities with their concrete numbers.
func (t Totals) Checks() []Check {
	outcomes := t.Success + t.MetadataOnly + t.Failure
	seen := t.Attempted + t.Skipped
	return []Check{
		{
			Name: IdentityAttempted,
			Equation: fmt.Sprintf("success %d + metadata_only %d + failure %d = %d, attempted %d",
				t.Success, t.MetadataOnly, t.Failure, outcomes, t.Attempted),
			OK: outcomes == t.Attempted,
		},
		{
			Name: IdentityDiscovered,
			Equation: fmt.Sprintf("attempted %d + skipped %d = %d, discovered %d",
				t.Attempted, t.Skipped, seen, t.Discovered),
			OK: seen == t.Discovered,
		},
	}
}

// Balanced reports whether both identities hold.
func (t Totals) Balanced() bool {
	for _, c := range t.Checks() {
		if !c.OK {
			return false
		}
	}
	return true
}
