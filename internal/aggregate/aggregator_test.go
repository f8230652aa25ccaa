package aggregate_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"harvest/internal/aggregate"
	"harvest/internal/descriptor"
	"harvest/internal/discovery"
	"harvest/internal/errkind"
	"harvest/internal/extract"
)

func candidate(modality, rel string) discovery.Candidate {
	name := rel[strings.LastIndex(rel, "/")+1:]
	return discovery.Candidate{
		Path:     "/data/" + rel,
		RelPath:  rel,
		Name:     name,
		Modality: modality,
		Format:   discovery.FormatFromName(name),
	}
}

func success(md extract.Metadata) extract.Outcome {
	return extract.Classify([]extract.Channel{{Name: "Vibration_Signal", Samples: []float64{1, 2}}}, md)
}

func TestAddBuildsOrderedTree(t *testing.T) {
	agg := aggregate.New()
	adds := []struct {
		c    discovery.Candidate
		d    descriptor.Descriptor
		kind extract.Outcome
	}{
		{candidate("Vibration", "vibration/2Nm_BPFI_10.mat"), descriptor.Descriptor{Load: "2Nm", Condition: "BPFI", Severity: "10"}, success(nil)},
		{candidate("Acoustic", "acoustic/0Nm_Normal.mat"), descriptor.Descriptor{Load: "0Nm", Condition: "Normal"}, extract.MetadataOnly(extract.Metadata{{Key: "container", Value: "Signal"}})},
		{candidate("Vibration", "vibration/0Nm_Normal.mat"), descriptor.Descriptor{Load: "0Nm", Condition: "Normal"}, success(nil)},
	}
	for _, a := range adds {
		if err := agg.Add(a.c, a.d, a.kind); err != nil {
			t.Fatalf("Add %s: %v", a.c.RelPath, err)
		}
	}

	tree := agg.Tree()
	var got []string
	for _, g := range tree.Groups {
		for _, n := range g.Nodes {
			got = append(got, g.Modality+"/"+n.Label)
		}
	}
	want := []string{"Vibration/2Nm_BPFI_10", "Vibration/0Nm_Normal", "Acoustic/0Nm_Normal"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tree order mismatch (-want +got):\n%s", diff)
	}
	if tree.NodeCount() != 3 || tree.ChannelCount() != 2 {
		t.Fatalf("unexpected counts: nodes=%d channels=%d", tree.NodeCount(), tree.ChannelCount())
	}

	node, ok := tree.Node("Acoustic", "0Nm_Normal")
	if !ok {
		t.Fatal("expected acoustic node")
	}
	if node.Outcome != extract.KindMetadataOnly || len(node.Channels) != 0 {
		t.Fatalf("unexpected metadata-only node %+v", node)
	}
	for _, key := range aggregate.RequiredAttributes {
		if _, ok := node.Attributes.Get(key); !ok {
			t.Fatalf("missing required attribute %q", key)
		}
	}
	if v, _ := node.Attributes.Get(aggregate.AttrSeverity); v != descriptor.NoSeverity {
		t.Fatalf("expected default severity, got %v", v)
	}
	if v, _ := node.Attributes.Get("container"); v != "Signal" {
		t.Fatalf("expected extractor metadata carried, got %v", v)
	}
}

func TestAddRejectsCollision(t *testing.T) {
	agg := aggregate.New()
	d := descriptor.Descriptor{Load: "0Nm", Condition: "Unbalance"}
	if err := agg.Add(candidate("Vibration", "vibration/0Nm_Unbalance.mat"), d, success(nil)); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	err := agg.Add(candidate("Vibration", "vibration/0Nm_unbalalnce.mat"), d, success(nil))
	if !errors.Is(err, errkind.ErrStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
	for _, name := range []string{"0Nm_Unbalance.mat", "0Nm_unbalalnce.mat"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("expected %q in %v", name, err)
		}
	}
	if err := agg.Add(candidate("Acoustic", "acoustic/0Nm_Unbalance.mat"), d, success(nil)); err != nil {
		t.Fatalf("same label in another modality must be accepted: %v", err)
	}
}

func TestAddRejectsFailure(t *testing.T) {
	err := aggregate.New().Add(candidate("Vibration", "vibration/0Nm_Normal.mat"), descriptor.Descriptor{Load: "0Nm", Condition: "Normal"}, extract.Failedf("bad"))
	if !errors.Is(err, errkind.ErrStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
}

func TestClashingMetadataKeysArePrefixed(t *testing.T) {
	agg := aggregate.New()
	md := extract.Metadata{{Key: "format", Value: "v5"}}
	if err := agg.Add(candidate("Vibration", "vibration/0Nm_Normal.mat"), descriptor.Descriptor{Load: "0Nm", Condition: "Normal"}, success(md)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	node, _ := agg.Tree().Node("Vibration", "0Nm_Normal")
	if v, _ := node.Attributes.Get("format"); v != "mat" {
		t.Fatalf("required attribute overwritten: %v", v)
	}
	if v, _ := node.Attributes.Get("extractor.format"); v != "v5" {
		t.Fatalf("expected prefixed extractor key, got %v", v)
	}
}

func TestSuccessNodesRecordTimestampOrigin(t *testing.T) {
	agg := aggregate.New()
	adds := []struct {
		rel  string
		load string
		out  extract.Outcome
	}{
		{"vibration/0Nm_Normal.mat", "0Nm", success(extract.Metadata{{Key: "start_value", Value: 0.5}, {Key: "increment", Value: 0.001}})},
		{"vibration/2Nm_Normal.mat", "2Nm", success(extract.Metadata{{Key: "increment", Value: 0.0}})},
		{"vibration/4Nm_Normal.mat", "4Nm", extract.MetadataOnly(extract.Metadata{{Key: "increment", Value: 0.001}})},
	}
	for _, a := range adds {
		d := descriptor.Descriptor{Load: a.load, Condition: "Normal"}
		if err := agg.Add(candidate("Vibration", a.rel), d, a.out); err != nil {
			t.Fatalf("Add %s: %v", a.rel, err)
		}
	}

	tests := []struct {
		label string
		want  any
	}{
		{"0Nm_Normal", aggregate.TimestampFromIncrement},
		{"2Nm_Normal", aggregate.TimestampSampleIndex},
		{"4Nm_Normal", nil},
	}
	for _, tc := range tests {
		node, ok := agg.Tree().Node("Vibration", tc.label)
		if !ok {
			t.Fatalf("missing node %s", tc.label)
		}
		got, _ := node.Attributes.Get(aggregate.AttrTimestampOrigin)
		if got != tc.want {
			t.Fatalf("%s: timestamp_origin = %v, want %v", tc.label, got, tc.want)
		}
	}
}
