package descriptor

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"harvest/internal/textutil"
)

// NoSeverity is recorded when a file name carries no severity token.
const NoSeverity = "No_Severity"

// ErrUnparseable is returned for names that do not follow the descriptor pattern.
var ErrUnparseable = errors.New("unparseable file name")

var namePattern = regexp.MustCompile(`(?i)^(\d+)nm_([^_]+)(?:_([^.]*))?\.(mat|tdms)$`)

// Descriptor is the (load, condition, severity) tuple encoded in a file name.
type Descriptor struct {
	Load      string `json:"load" yaml:"load"`
	Condition string `json:"condition" yaml:"condition"`
	Severity  string `json:"severity,omitempty" yaml:"severity,omitempty"`
}

// Label returns the stable node key <load>_<condition>[_<severity>].
func (d Descriptor) Label() string {
	if d.Severity == "" {
		return d.Load + "_" + d.Condition
	}
	return d.Load + "_" + d.Condition + "_" + d.Severity
}

// SeverityOrDefault returns the severity token, or NoSeverity when absent.
func (d Descriptor) SeverityOrDefault() string {
	if d.Severity == "" {
		return NoSeverity
	}
	return d.Severity
}

// Parser resolves file names against a condition alias table.
type Parser struct {
	byAlias map[string]string
}

// NewParser builds a parser from a canonical-name to spellings table. Each
// canonical name is also accepted as its own spelling. A spelling that maps to
// two canonical names is rejected.
func NewParser(conditions map[string][]string) (*Parser, error) {
	names := make([]string, 0, len(conditions))
	for name := range conditions {
		names = append(names, name)
	}
	sort.Strings(names)

	byAlias := make(map[string]string)
	for _, canonical := range names {
		canonical = strings.TrimSpace(canonical)
		if canonical == "" {
			continue
		}
		for _, spelling := range append([]string{canonical}, conditions[canonical]...) {
			key := textutil.Fold(spelling)
			if key == "" {
				continue
			}
			if prev, ok := byAlias[key]; ok && prev != canonical {
				return nil, fmt.Errorf("condition alias %q maps to both %q and %q", spelling, prev, canonical)
			}
			byAlias[key] = canonical
		}
	}
	return &Parser{byAlias: byAlias}, nil
}

// Parse derives the descriptor from a base file name. Condition tokens missing
// from the alias table are kept verbatim so new classes still get a node.
func (p *Parser) Parse(name string) (Descriptor, error) {
	match := namePattern.FindStringSubmatch(strings.TrimSpace(name))
	if match == nil {
		return Descriptor{}, fmt.Errorf("%w: %q does not match <load>Nm_<condition>[_<severity>].(mat|tdms)", ErrUnparseable, name)
	}
	return Descriptor{
		Load:      match[1] + "Nm",
		Condition: p.Canonical(match[2]),
		Severity:  strings.TrimSpace(match[3]),
	}, nil
}

// Canonical resolves one condition token through the alias table.
func (p *Parser) Canonical(token string) string {
	token = strings.TrimSpace(token)
	if p == nil {
		return token
	}
	if canonical, ok := p.byAlias[textutil.Fold(token)]; ok {
		return canonical
	}
	return token
}

// Known reports whether token resolves through the alias table.
func (p *Parser) Known(token string) bool {
	if p == nil {
		return false
	}
	_, ok := p.byAlias[textutil.Fold(token)]
	return ok
}
