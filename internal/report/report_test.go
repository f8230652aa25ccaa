package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"harvest/internal/discovery"
	"harvest/internal/errkind"
	"harvest/internal/extract"
	"harvest/internal/pipeline"
	"harvest/internal/reconcile"
	"harvest/internal/store"
)

func sampleResult() *pipeline.Result {
	totals := reconcile.Totals{Success: 3, MetadataOnly: 1, Failure: 1, Attempted: 5, Discovered: 6, Skipped: 1}
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &pipeline.Result{
		RunID:      "run-42",
		StartedAt:  start,
		FinishedAt: start.Add(2340 * time.Millisecond),
		DatasetDir: "/data",
		OutputPath: "/out/dataset.db",
		Totals:     totals,
		Checks:     totals.Checks(),
		Reconciled: true,
		Written:    true,
		Nodes:      4,
		Channels:   5,
		Lists: reconcile.Lists{
			Success: []reconcile.Entry{
				{RelPath: "vibration/2Nm_BPFO_10.mat", Modality: "Vibration"},
				{RelPath: "vibration/0Nm_BPFI_03.mat", Modality: "Vibration"},
				{RelPath: "vibration/0Nm_Normal.mat", Modality: "Vibration"},
			},
			MetadataOnly: []reconcile.Entry{{RelPath: "vibration/4Nm_Misalign.mat", Modality: "Vibration"}},
			Failure:      []reconcile.Entry{{RelPath: "vibration/0Nm_Unbalance.mat", Modality: "Vibration", Reason: "not a level 5 MAT-file"}},
			Skipped:      []reconcile.Entry{{RelPath: "vibration/old.zip", Modality: "Vibration", Reason: "archive"}},
		},
	}
}

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("attempted identity", statusError, "1 != 2", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "attempted identity:", "[ERROR] 1 != 2")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Artifact", statusOK, "written", true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line, got %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if ShouldColorize(io.Discard) {
		t.Fatal("expected non-file writer to disable color")
	}
}

func TestFromResultSortsLists(t *testing.T) {
	s := FromResult(sampleResult())
	got := make([]string, 0, len(s.Files.Success))
	for _, e := range s.Files.Success {
		got = append(got, e.RelPath)
	}
	want := []string{"vibration/0Nm_BPFI_03.mat", "vibration/0Nm_Normal.mat", "vibration/2Nm_BPFO_10.mat"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("success list mismatch (-want +got):\n%s", diff)
	}
	if s.Duration != "2.34s" {
		t.Fatalf("unexpected duration %q", s.Duration)
	}
	if !s.Balanced() {
		t.Fatal("expected balanced summary")
	}
}

func TestRenderTextIncludesTotalsChecksAndLists(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderText(&buf, FromResult(sampleResult()), false); err != nil {
		t.Fatalf("RenderText: %v", err)
	}
	out := buf.String()
	for _, fragment := range []string{
		"== Run summary ==",
		"[OK] /out/dataset.db (4 nodes, 5 channels)",
		"Metadata only",
		"DISCOVERED",
		"[OK] success 3 + metadata_only 1 + failure 1 = 5, attempted 5",
		"== Failures (1) ==",
		"not a level 5 MAT-file",
		"== Skipped (1) ==",
		"archive",
		"vibration/4Nm_Misalign.mat",
	} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %q in output:\n%s", fragment, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatal("expected no ANSI codes without colorize")
	}
}

func TestRenderTextShowsFatalError(t *testing.T) {
	r := sampleResult()
	r.Written = false
	r.Err = errkind.Wrap(errkind.ErrStructural, "aggregate", "add", "descriptor key Vibration/0Nm_Normal produced twice", nil)
	var buf bytes.Buffer
	if err := RenderText(&buf, FromResult(r), false); err != nil {
		t.Fatalf("RenderText: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Run error (structural)") || !strings.Contains(out, "not written") {
		t.Fatalf("expected fatal error lines, got:\n%s", out)
	}
}

func TestRenderStructuredFormats(t *testing.T) {
	s := FromResult(sampleResult())

	var jsonBuf bytes.Buffer
	if err := Render(&jsonBuf, FormatJSON, s, false); err != nil {
		t.Fatalf("Render json: %v", err)
	}
	var decoded Summary
	if err := json.Unmarshal(jsonBuf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if decoded.Totals != s.Totals || len(decoded.Files.Failure) != 1 {
		t.Fatalf("unexpected decoded summary %+v", decoded)
	}

	var yamlBuf bytes.Buffer
	if err := Render(&yamlBuf, FormatYAML, s, false); err != nil {
		t.Fatalf("Render yaml: %v", err)
	}
	var generic map[string]any
	if err := yaml.Unmarshal(yamlBuf.Bytes(), &generic); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	totals, ok := generic["totals"].(map[string]any)
	if !ok || totals["metadata_only"] != 1 {
		t.Fatalf("unexpected yaml totals %v", generic["totals"])
	}

	if err := Render(io.Discard, "xml", s, false); err == nil {
		t.Fatal("expected unknown format error")
	}
}

func TestRenderPlanListsCollisions(t *testing.T) {
	plan := &pipeline.PlanResult{
		DatasetDir: "/data",
		Discovered: 3,
		Files: []pipeline.PlannedFile{
			{Candidate: discovery.Candidate{RelPath: "vibration/0Nm_Normal.mat", Modality: "Vibration", Format: discovery.FormatMAT}, Label: "0Nm_Normal", KnownCondition: true},
			{Candidate: discovery.Candidate{RelPath: "vibration/junk.mat", Modality: "Vibration", Format: discovery.FormatMAT}, ParseError: "unparseable"},
		},
		Skipped:    []discovery.Skipped{{Entry: discovery.Entry{RelPath: "vibration/.hidden"}, Reason: discovery.SkipHidden}},
		Collisions: []pipeline.Collision{{Modality: "Vibration", Label: "0Nm_Normal", Files: []string{"a.mat", "b.mat"}}},
	}
	var buf bytes.Buffer
	if err := RenderPlan(&buf, plan, false); err != nil {
		t.Fatalf("RenderPlan: %v", err)
	}
	out := buf.String()
	for _, fragment := range []string{"will fail: unparseable name", "hidden", "[ERROR] Vibration/0Nm_Normal from a.mat, b.mat"} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %q in output:\n%s", fragment, out)
		}
	}
}

func TestRenderInspectTree(t *testing.T) {
	a := Artifact{
		Path: "/out/dataset.db",
		Run:  store.RunInfo{ID: "run-42"},
		Nodes: []store.NodeSummary{
			{Modality: "Vibration", Label: "0Nm_Normal", Outcome: extract.KindSuccess, Attributes: 12,
				Channels: []store.ChannelSummary{{Name: "Vibration_Signal", SampleCount: 3}}},
			{Modality: "Temp_Current", Label: "0Nm_Normal", Outcome: extract.KindMetadataOnly, Attributes: 9},
		},
	}
	var buf bytes.Buffer
	if err := RenderInspect(&buf, a, false); err != nil {
		t.Fatalf("RenderInspect: %v", err)
	}
	out := buf.String()
	for _, fragment := range []string{"Vibration", "Vibration_Signal: 3 samples", "0Nm_Normal [metadata_only]", "Temp_Current"} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %q in output:\n%s", fragment, out)
		}
	}
}

func TestRenderTextSurvivesEmptySummary(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderText(&buf, FromResult(&pipeline.Result{Err: errors.New("boom")}), false); err != nil {
		t.Fatalf("RenderText: %v", err)
	}
	if !strings.Contains(buf.String(), "not checked") {
		t.Fatalf("expected unchecked identities note, got:\n%s", buf.String())
	}
}
