package textutil

import "testing"

func TestFoldNormalizesCaseAndComposition(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"Vibration", "vibration"},
		{"  ACOUSTIC ", "acoustic"},
		{"Current,Temp", "current,temp"},
		{"Café", "café"},
	}
	for _, tc := range tests {
		if !EqualFold(tc.a, tc.b) {
			t.Fatalf("expected %q and %q to fold equal: %q vs %q", tc.a, tc.b, Fold(tc.a), Fold(tc.b))
		}
	}
	if EqualFold("bpfi", "bpfo") {
		t.Fatal("distinct words must not fold equal")
	}
	if Fold("   ") != "" {
		t.Fatal("expected blank input to fold to empty")
	}
}

func TestTitleKeepsUnderscoreSegments(t *testing.T) {
	tests := map[string]string{
		"temp_current": "Temp_Current",
		"VIBRATION":    "Vibration",
		"":             "",
	}
	for in, want := range tests {
		if got := Title(in); got != want {
			t.Fatalf("Title(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeChannelName(t *testing.T) {
	tests := map[string]string{
		"cDAQ9185-1F486B5Mod1/ai0": "cDAQ9185-1F486B5Mod1_ai0",
		"DAC~Channel~Type":         "DAC_Channel_Type",
		" spaced name ":            "spaced_name",
		"///":                      "channel",
		"":                         "channel",
	}
	for in, want := range tests {
		if got := SanitizeChannelName(in); got != want {
			t.Fatalf("SanitizeChannelName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(` 0Nm_BPFI:03?.csv `); got != "0Nm_BPFI-03.csv" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
}
