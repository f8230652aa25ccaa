package export_test

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"harvest/internal/aggregate"
	"harvest/internal/descriptor"
	"harvest/internal/discovery"
	"harvest/internal/export"
	"harvest/internal/extract"
	"harvest/internal/logging"
	"harvest/internal/store"
)

func writeArtifact(t *testing.T) string {
	t.Helper()
	agg := aggregate.New()
	add := func(modality, rel string, d descriptor.Descriptor, out extract.Outcome) {
		name := filepath.Base(rel)
		c := discovery.Candidate{Path: "/data/" + rel, RelPath: rel, Name: name, Modality: modality, Format: discovery.FormatMAT}
		if err := agg.Add(c, d, out); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	timed := extract.Metadata{{Key: "start_value", Value: 1.0}, {Key: "increment", Value: 0.5}}
	add("Vibration", "vibration/0Nm_Normal.mat", descriptor.Descriptor{Load: "0Nm", Condition: "Normal"},
		extract.Classify([]extract.Channel{
			{Name: "Vibration_Signal_Ch1", Samples: []float64{0.1, 0.2, 0.3}},
			{Name: "Vibration_Signal_Ch2", Samples: []float64{1, 2, 3}},
		}, timed))
	add("Vibration", "vibration/2Nm_BPFI_1.mat", descriptor.Descriptor{Load: "2Nm", Condition: "BPFI", Severity: "1"},
		extract.Classify([]extract.Channel{
			{Name: "a", Samples: []float64{1, 2}},
			{Name: "b", Samples: []float64{1}},
		}, nil))
	add("Acoustic", "acoustic/0Nm_Normal.mat", descriptor.Descriptor{Load: "0Nm", Condition: "Normal"},
		extract.Classify([]extract.Channel{{Name: "Acoustic_Signal", Samples: []float64{7, 8}}}, extract.Metadata{{Key: "container", Value: "Signal"}}))
	add("Acoustic", "acoustic/4Nm_Normal.mat", descriptor.Descriptor{Load: "4Nm", Condition: "Normal"},
		extract.MetadataOnly(extract.Metadata{{Key: "container", Value: "Signal"}}))

	path := filepath.Join(t.TempDir(), "dataset.db")
	sink := store.NewSQLiteSink(path, logging.NewNop())
	if err := sink.Write(context.Background(), agg.Tree(), store.RunInfo{ID: "run-1"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return path
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return records
}

func TestCSVExportsSuccessNodes(t *testing.T) {
	artifact := writeArtifact(t)
	out := t.TempDir()

	result, err := export.CSV(context.Background(), artifact, out, export.Options{Logger: logging.NewNop()})
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	if result.Converted != 2 || result.Skipped != 2 || result.Errors != 0 {
		t.Fatalf("unexpected counts %+v", result)
	}

	want := [][]string{
		{"Timestamp", "Vibration_Signal_Ch1", "Vibration_Signal_Ch2"},
		{"1", "0.1", "1"},
		{"1.5", "0.2", "2"},
		{"2", "0.3", "3"},
	}
	if diff := cmp.Diff(want, readCSV(t, filepath.Join(out, "Vibration", "0Nm_Normal.csv"))); diff != "" {
		t.Fatalf("vibration csv mismatch (-want +got):\n%s", diff)
	}
	wantIndexed := [][]string{{"Timestamp", "Acoustic_Signal"}, {"0", "7"}, {"1", "8"}}
	if diff := cmp.Diff(wantIndexed, readCSV(t, filepath.Join(out, "Acoustic", "0Nm_Normal.csv"))); diff != "" {
		t.Fatalf("acoustic csv mismatch (-want +got):\n%s", diff)
	}

	reasons := map[string]string{}
	for _, n := range result.Notes {
		reasons[n.Node] = n.Reason
	}
	if !strings.Contains(reasons["Vibration/2Nm_BPFI_1"], "has 1 samples") {
		t.Fatalf("expected length mismatch note, got %v", reasons)
	}
	if !strings.Contains(reasons["Acoustic/4Nm_Normal"], "metadata-only") {
		t.Fatalf("expected metadata-only note, got %v", reasons)
	}
}

func TestCSVModalityFilter(t *testing.T) {
	artifact := writeArtifact(t)
	out := t.TempDir()
	result, err := export.CSV(context.Background(), artifact, out, export.Options{Modality: "Acoustic"})
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	if result.Converted != 1 || result.Skipped != 1 {
		t.Fatalf("unexpected counts %+v", result)
	}
	if _, err := os.Stat(filepath.Join(out, "Vibration")); !os.IsNotExist(err) {
		t.Fatalf("expected no vibration output, got %v", err)
	}
}

func TestCSVMissingArtifact(t *testing.T) {
	if _, err := export.CSV(context.Background(), filepath.Join(t.TempDir(), "none.db"), t.TempDir(), export.Options{}); err == nil {
		t.Fatal("expected error for missing artifact")
	}
}

func TestCSVFollowsStoredTimestampOrigin(t *testing.T) {
	agg := aggregate.New()
	c := discovery.Candidate{Path: "/data/vibration/0Nm_Normal.mat", RelPath: "vibration/0Nm_Normal.mat", Name: "0Nm_Normal.mat", Modality: "Vibration", Format: discovery.FormatMAT}
	timed := extract.Metadata{{Key: "start_value", Value: 1.0}, {Key: "increment", Value: 0.5}}
	if err := agg.Add(c, descriptor.Descriptor{Load: "0Nm", Condition: "Normal"},
		extract.Classify([]extract.Channel{{Name: "Vibration_Signal", Samples: []float64{4, 5}}}, timed)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	node, _ := agg.Tree().Node("Vibration", "0Nm_Normal")
	if got, _ := node.Attributes.Get(aggregate.AttrTimestampOrigin); got != aggregate.TimestampFromIncrement {
		t.Fatalf("timestamp_origin = %v, want %s", got, aggregate.TimestampFromIncrement)
	}
	node.Attributes.Set(aggregate.AttrTimestampOrigin, aggregate.TimestampSampleIndex)

	path := filepath.Join(t.TempDir(), "dataset.db")
	if err := store.NewSQLiteSink(path, logging.NewNop()).Write(context.Background(), agg.Tree(), store.RunInfo{ID: "run-1"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := t.TempDir()
	if _, err := export.CSV(context.Background(), path, out, export.Options{Logger: logging.NewNop()}); err != nil {
		t.Fatalf("CSV: %v", err)
	}
	want := [][]string{{"Timestamp", "Vibration_Signal"}, {"0", "4"}, {"1", "5"}}
	if diff := cmp.Diff(want, readCSV(t, filepath.Join(out, "Vibration", "0Nm_Normal.csv"))); diff != "" {
		t.Fatalf("csv mismatch (-want +got):\n%s", diff)
	}
}
