package metrics_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"harvest/internal/errkind"
	"harvest/internal/metrics"
	"harvest/internal/reconcile"
)

func TestObserveSetsGauges(t *testing.T) {
	rec, err := metrics.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	started := time.Unix(1_700_000_000, 0)
	totals := reconcile.Totals{Success: 3, MetadataOnly: 1, Failure: 1, Skipped: 2, Attempted: 5, Discovered: 7}
	rec.Observe(totals, started, started.Add(1500*time.Millisecond), nil)

	expected := `
# HELP harvest_files Files counted into each outcome bucket by the last run
# TYPE harvest_files gauge
harvest_files{outcome="failure"} 1
harvest_files{outcome="metadata_only"} 1
harvest_files{outcome="skipped"} 2
harvest_files{outcome="success"} 3
# HELP harvest_reconciliation_ok 1 when the bookkeeping identity held in the last run
# TYPE harvest_reconciliation_ok gauge
harvest_reconciliation_ok{identity="attempted"} 1
harvest_reconciliation_ok{identity="discovered"} 1
# HELP harvest_run_duration_seconds Wall time of the last run
# TYPE harvest_run_duration_seconds gauge
harvest_run_duration_seconds 1.5
`
	if err := testutil.GatherAndCompare(rec.Registry(), strings.NewReader(expected),
		"harvest_files", "harvest_reconciliation_ok", "harvest_run_duration_seconds"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
	if n := testutil.CollectAndCount(rec.Registry(), "harvest_run_failed"); n != 0 {
		t.Fatalf("expected no run_failed series, got %d", n)
	}
}

func TestObserveRecordsFailureKind(t *testing.T) {
	rec, err := metrics.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	runErr := errkind.Wrap(errkind.ErrStructural, "reconcile", "identity check", "", errors.New("mismatch"))
	rec.Observe(reconcile.Totals{Success: 1, Attempted: 2, Discovered: 2}, time.Time{}, time.Now(), runErr)

	expected := `
# HELP harvest_run_failed 1 when the last run aborted, labelled by error kind
# TYPE harvest_run_failed gauge
harvest_run_failed{kind="structural"} 1
`
	if err := testutil.GatherAndCompare(rec.Registry(), strings.NewReader(expected), "harvest_run_failed"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	rec, err := metrics.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec.Observe(reconcile.Totals{}, time.Time{}, time.Unix(1_700_000_000, 0), nil)
	path := filepath.Join(t.TempDir(), "textfile", "harvest.prom")
	if err := rec.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "harvest_run_timestamp_seconds 1.7e+09") {
		t.Fatalf("expected timestamp gauge in textfile, got:\n%s", data)
	}
}
