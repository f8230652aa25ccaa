package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"harvest/internal/config"
	"harvest/internal/discovery"
	"harvest/internal/errkind"
	"harvest/internal/extract"
	"harvest/internal/logging"
	"harvest/internal/pipeline"
	"harvest/internal/reconcile"
	"harvest/internal/store"
	"harvest/internal/testsupport"
)

func writeSignal(t *testing.T, cfg *config.Config, rel string, columns ...[]float64) {
	t.Helper()
	testsupport.WriteMAT(t, filepath.Join(cfg.Paths.DatasetDir, rel), true, testsupport.MATVariable{
		Name:  "Signal",
		Value: testsupport.SignalRecord(0, 0.001, columns...),
	})
}

func writeScenario(t *testing.T, cfg *config.Config) {
	t.Helper()
	writeSignal(t, cfg, "vibration/0Nm_Normal.mat", []float64{1, 2, 3})
	writeSignal(t, cfg, "vibration/0Nm_BPFI_03.mat", []float64{4, 5}, []float64{6, 7})
	writeSignal(t, cfg, "vibration/2Nm_BPFO_10.mat", []float64{8})
	writeSignal(t, cfg, "vibration/4Nm_Misalign.mat")
	testsupport.WriteBytes(t, filepath.Join(cfg.Paths.DatasetDir, "vibration", "0Nm_Unbalance.mat"), []byte("MATLAB 5.0 MAT-file, truncated"))
}

func run(t *testing.T, cfg *config.Config) (*pipeline.Result, error) {
	t.Helper()
	return pipeline.Run(context.Background(), pipeline.Options{Config: cfg, Logger: logging.NewNop()})
}

func relPaths(entries []reconcile.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.RelPath)
	}
	return out
}

func TestRunEndToEndScenario(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeScenario(t, cfg)

	result, err := run(t, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := reconcile.Totals{Success: 3, MetadataOnly: 1, Failure: 1, Skipped: 0, Attempted: 5, Discovered: 5}
	if diff := cmp.Diff(want, result.Totals); diff != "" {
		t.Fatalf("totals mismatch (-want +got):\n%s", diff)
	}
	for _, check := range result.Checks {
		if !check.OK {
			t.Fatalf("identity %s failed: %s", check.Name, check.Equation)
		}
	}
	if !result.Written || result.Nodes != 4 {
		t.Fatalf("expected four written nodes, got written=%v nodes=%d", result.Written, result.Nodes)
	}
	if diff := cmp.Diff([]string{"vibration/0Nm_Unbalance.mat"}, relPaths(result.Lists.Failure)); diff != "" {
		t.Fatalf("failure list mismatch (-want +got):\n%s", diff)
	}
	if result.Lists.Failure[0].Reason == "" {
		t.Fatal("expected failure reason")
	}
	if diff := cmp.Diff([]string{"vibration/4Nm_Misalign.mat"}, relPaths(result.Lists.MetadataOnly)); diff != "" {
		t.Fatalf("metadata-only list mismatch (-want +got):\n%s", diff)
	}

	st, err := store.Open(cfg.Paths.OutputPath)
	if err != nil {
		t.Fatalf("open artifact: %v", err)
	}
	defer st.Close()
	nodes, err := st.Describe(context.Background())
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if len(nodes) != 4 {
		t.Fatalf("expected 4 stored nodes, got %d", len(nodes))
	}
	withArrays := 0
	for _, n := range nodes {
		switch n.Outcome {
		case extract.KindSuccess:
			withArrays++
			for _, ch := range n.Channels {
				if ch.SampleCount == 0 {
					t.Fatalf("stored empty channel %s in %s", ch.Name, n.Label)
				}
			}
		case extract.KindMetadataOnly:
			if len(n.Channels) != 0 || n.Attributes == 0 {
				t.Fatalf("unexpected metadata-only node %+v", n)
			}
		}
	}
	if withArrays != 3 {
		t.Fatalf("expected 3 nodes with arrays, got %d", withArrays)
	}
	info, err := st.Run(context.Background())
	if err != nil || info.ID != result.RunID {
		t.Fatalf("expected run %s recorded, got %+v (%v)", result.RunID, info, err)
	}
	if _, err := os.Stat(store.LockPath(cfg.Paths.OutputPath)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected lock file released, got %v", err)
	}
}

func TestRunCountsSkippedEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeSignal(t, cfg, "acoustic/0Nm_Normal.mat", []float64{1})
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DatasetDir, "acoustic", ".DS_Store"), 8)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DatasetDir, "acoustic", "0Nm_Normal.mat:Zone.Identifier"), 8)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DatasetDir, "acoustic", "backup.zip"), 8)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DatasetDir, "acoustic", "notes.txt"), 8)

	result, err := run(t, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := reconcile.Totals{Success: 1, Skipped: 4, Attempted: 1, Discovered: 5}
	if diff := cmp.Diff(want, result.Totals); diff != "" {
		t.Fatalf("totals mismatch (-want +got):\n%s", diff)
	}
	reasons := map[string]string{}
	for _, s := range result.Lists.Skipped {
		reasons[filepath.Base(s.RelPath)] = s.Reason
	}
	wantReasons := map[string]string{
		".DS_Store":                      string(discovery.SkipHidden),
		"0Nm_Normal.mat:Zone.Identifier": string(discovery.SkipAlternateStream),
		"backup.zip":                     string(discovery.SkipArchive),
		"notes.txt":                      string(discovery.SkipUnsupportedExtension),
	}
	if diff := cmp.Diff(wantReasons, reasons); diff != "" {
		t.Fatalf("skip reasons mismatch (-want +got):\n%s", diff)
	}
}

func TestRunEmptyDatasetBalances(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	result, err := run(t, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Totals != (reconcile.Totals{}) || !result.Totals.Balanced() {
		t.Fatalf("unexpected totals for empty input %+v", result.Totals)
	}
	if !result.Written || result.Nodes != 0 {
		t.Fatalf("expected an empty artifact, got written=%v nodes=%d", result.Written, result.Nodes)
	}
}

func TestRunCollisionAbortsBeforeWrite(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeSignal(t, cfg, "vibration/0Nm_Unbalance.mat", []float64{1})
	writeSignal(t, cfg, "vibration/0Nm_unbalalnce.mat", []float64{2})

	result, err := run(t, cfg)
	if !errors.Is(err, errkind.ErrStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
	if !strings.Contains(err.Error(), "0Nm_Unbalance") {
		t.Fatalf("expected colliding key in error, got %v", err)
	}
	if result.Written {
		t.Fatal("artifact must not be written after a collision")
	}
	if !result.Reconciled || result.Totals.Success != 2 {
		t.Fatalf("expected reconciled totals to be reported, got %+v", result.Totals)
	}
	if _, statErr := os.Stat(cfg.Paths.OutputPath); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected no artifact, stat returned %v", statErr)
	}
}

func TestRunFaultIsolation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeSignal(t, cfg, "vibration/0Nm_Normal.mat", []float64{1})
	writeSignal(t, cfg, "vibration/2Nm_Normal.mat", []float64{2})
	testsupport.WriteBytes(t, filepath.Join(cfg.Paths.DatasetDir, "vibration", "1Nm_Normal.mat"), nil)
	testsupport.WriteBytes(t, filepath.Join(cfg.Paths.DatasetDir, "vibration", "3Nm_Normal.tdms"), []byte("TDSm"))
	writeSignal(t, cfg, "vibration/not-a-descriptor.mat", []float64{3})

	result, err := run(t, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Totals.Success != 2 || result.Totals.Failure != 3 {
		t.Fatalf("expected 2 successes and 3 failures, got %+v", result.Totals)
	}
	var parseFailure string
	for _, f := range result.Lists.Failure {
		if strings.HasSuffix(f.RelPath, "not-a-descriptor.mat") {
			parseFailure = f.Reason
		}
	}
	if !strings.Contains(parseFailure, "unparseable") {
		t.Fatalf("expected descriptor failure reason, got %q", parseFailure)
	}
}

type panicky struct{}

func (panicky) Extract(context.Context, discovery.Candidate) extract.Outcome {
	panic("decoder exploded")
}

func TestRunRecoversExtractorPanics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeSignal(t, cfg, "vibration/0Nm_Normal.mat", []float64{1})

	d := extract.NewDispatcher(cfg, logging.NewNop())
	d.MAT = panicky{}
	result, err := pipeline.Run(context.Background(), pipeline.Options{Config: cfg, Logger: logging.NewNop(), Extractor: d})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Totals.Failure != 1 || !strings.Contains(result.Lists.Failure[0].Reason, "decoder exploded") {
		t.Fatalf("expected recovered panic as failure, got %+v", result.Lists)
	}
}

func TestRunMissingDatasetIsConfigurationError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.DatasetDir = filepath.Join(testsupport.BaseDir(cfg), "missing")
	result, err := run(t, cfg)
	if !errors.Is(err, errkind.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if result == nil || result.Err == nil || result.Reconciled {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRunCancelledWritesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeSignal(t, cfg, "vibration/0Nm_Normal.mat", []float64{1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := pipeline.Run(ctx, pipeline.Options{Config: cfg, Logger: logging.NewNop()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if result.Written {
		t.Fatal("cancelled run must not write")
	}
	if _, statErr := os.Stat(cfg.Paths.OutputPath); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected no artifact, stat returned %v", statErr)
	}
}

func TestRunRefusesLockedOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lock, err := store.AcquireLock(cfg.Paths.OutputPath)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer lock.Release()

	_, err = run(t, cfg)
	if !errors.Is(err, errkind.ErrSink) || !errors.Is(err, store.ErrLocked) {
		t.Fatalf("expected locked sink error, got %v", err)
	}
}

func TestRunWritesMetricsTextfile(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMetricsTextfile())
	writeScenario(t, cfg)
	if _, err := run(t, cfg); err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, err := os.ReadFile(cfg.Metrics.Textfile)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	for _, line := range []string{
		`harvest_files{outcome="success"} 3`,
		`harvest_files_discovered 5`,
		`harvest_reconciliation_ok{identity="attempted"} 1`,
	} {
		if !strings.Contains(string(data), line) {
			t.Fatalf("expected %q in metrics:\n%s", line, data)
		}
	}
}

func TestPlanReportsLabelsAndCollisions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeSignal(t, cfg, "vibration/0Nm_Unbalance.mat", []float64{1})
	writeSignal(t, cfg, "vibration/0Nm_unbalence.mat", []float64{1})
	writeSignal(t, cfg, "vibration/1Nm_Wobble_2.mat", []float64{1})
	writeSignal(t, cfg, "vibration/junk.mat", []float64{1})
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DatasetDir, "vibration", "data.7z"), 4)

	plan, err := pipeline.Plan(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Discovered != 5 || len(plan.Files) != 4 || len(plan.Skipped) != 1 {
		t.Fatalf("unexpected plan sizes: discovered=%d files=%d skipped=%d", plan.Discovered, len(plan.Files), len(plan.Skipped))
	}
	labels := map[string]pipeline.PlannedFile{}
	for _, f := range plan.Files {
		labels[f.Candidate.Name] = f
	}
	if f := labels["1Nm_Wobble_2.mat"]; f.Label != "1Nm_Wobble_2" || f.KnownCondition {
		t.Fatalf("unexpected plan for unknown condition: %+v", f)
	}
	if f := labels["junk.mat"]; f.ParseError == "" {
		t.Fatalf("expected parse error for junk.mat: %+v", f)
	}
	want := []pipeline.Collision{{
		Modality: "Vibration",
		Label:    "0Nm_Unbalance",
		Files:    []string{"vibration/0Nm_Unbalance.mat", "vibration/0Nm_unbalence.mat"},
	}}
	if diff := cmp.Diff(want, plan.Collisions); diff != "" {
		t.Fatalf("collisions mismatch (-want +got):\n%s", diff)
	}
}

func TestRunPreflightRejectsDirectoryOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeSignal(t, cfg, "vibration/0Nm_Normal.mat", []float64{1})
	if err := os.MkdirAll(cfg.Paths.OutputPath, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	result, err := run(t, cfg)
	if !errors.Is(err, errkind.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Output artifact") {
		t.Fatalf("expected failing check named in error, got %v", err)
	}
	if result.Reconciled || result.Totals.Discovered != 0 {
		t.Fatalf("expected abort before discovery, got %+v", result.Totals)
	}
	if _, statErr := os.Stat(store.LockPath(cfg.Paths.OutputPath)); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected no lock file, stat returned %v", statErr)
	}
}
