package descriptor

import (
	"errors"
	"testing"

	"harvest/internal/config"
)

func defaultParser(t *testing.T) *Parser {
	t.Helper()
	p, err := NewParser(config.Default().Conditions)
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	return p
}

func TestParseExtractsFields(t *testing.T) {
	p := defaultParser(t)
	tests := []struct {
		name      string
		want      Descriptor
		wantLabel string
	}{
		{"0Nm_BPFI_03.mat", Descriptor{Load: "0Nm", Condition: "BPFI", Severity: "03"}, "0Nm_BPFI_03"},
		{"2Nm_Normal.tdms", Descriptor{Load: "2Nm", Condition: "Normal"}, "2Nm_Normal"},
		{"4nm_unbalance_1751mg.TDMS", Descriptor{Load: "4Nm", Condition: "Unbalance", Severity: "1751mg"}, "4Nm_Unbalance_1751mg"},
		{"0Nm_Misalign_01_trial2.mat", Descriptor{Load: "0Nm", Condition: "Misalign", Severity: "01_trial2"}, "0Nm_Misalign_01_trial2"},
		{"0Nm_Outer.mat", Descriptor{Load: "0Nm", Condition: "Outer"}, "0Nm_Outer"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := p.Parse(tc.name)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tc.name, got, tc.want)
			}
			if got.Label() != tc.wantLabel {
				t.Fatalf("Label() = %q, want %q", got.Label(), tc.wantLabel)
			}
		})
	}
}

func TestParseIsSpellingTolerant(t *testing.T) {
	p := defaultParser(t)
	variants := []string{
		"2Nm_Unbalance_0583mg.mat",
		"2Nm_Unbalalnce_0583mg.mat",
		"2Nm_unbalnce_0583mg.mat",
		"2Nm_UNBALENCE_0583mg.mat",
	}
	first, err := p.Parse(variants[0])
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for _, name := range variants[1:] {
		got, err := p.Parse(name)
		if err != nil {
			t.Fatalf("Parse(%q): %v", name, err)
		}
		if got.Label() != first.Label() {
			t.Fatalf("label for %q = %q, want %q", name, got.Label(), first.Label())
		}
	}

	misalign := []string{"0Nm_Misalign.mat", "0Nm_misalignment.mat", "0Nm_Misalignement.mat"}
	for _, name := range misalign {
		got, err := p.Parse(name)
		if err != nil {
			t.Fatalf("Parse(%q): %v", name, err)
		}
		if got.Condition != "Misalign" {
			t.Fatalf("condition for %q = %q", name, got.Condition)
		}
	}
}

func TestParseIsIdempotent(t *testing.T) {
	p := defaultParser(t)
	a, errA := p.Parse("0Nm_BPFO_10.mat")
	b, errB := p.Parse("0Nm_BPFO_10.mat")
	if errA != nil || errB != nil || a != b {
		t.Fatalf("expected identical results, got %+v/%v and %+v/%v", a, errA, b, errB)
	}
}

func TestParseRejectsMalformedNames(t *testing.T) {
	p := defaultParser(t)
	for _, name := range []string{"Normal.mat", "0Nm.mat", "xNm_BPFI.mat", "0Nm_BPFI.csv", ""} {
		if _, err := p.Parse(name); !errors.Is(err, ErrUnparseable) {
			t.Fatalf("Parse(%q) error = %v, want ErrUnparseable", name, err)
		}
	}
}

func TestNewParserRejectsAmbiguousSpelling(t *testing.T) {
	_, err := NewParser(map[string][]string{
		"Unbalance": {"imbalance"},
		"Imbalance": {},
	})
	if err == nil {
		t.Fatal("expected conflict error")
	}
}

func TestSeverityOrDefault(t *testing.T) {
	if got := (Descriptor{}).SeverityOrDefault(); got != NoSeverity {
		t.Fatalf("got %q", got)
	}
	if got := (Descriptor{Severity: "03"}).SeverityOrDefault(); got != "03" {
		t.Fatalf("got %q", got)
	}
}

func TestKnown(t *testing.T) {
	p := defaultParser(t)
	if !p.Known("bpfi") || p.Known("outer") {
		t.Fatal("unexpected Known result")
	}
}
