package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"harvest/internal/errkind"
	"harvest/internal/reconcile"
)

const namespace = "harvest"

// Outcome label values for harvest_files.
const (
	OutcomeSuccess      = "success"
	OutcomeMetadataOnly = "metadata_only"
	OutcomeFailure      = "failure"
	OutcomeSkipped      = "skipped"
)

// Recorder holds the gauges describing one run.
type Recorder struct {
	registry *prometheus.Registry

	files          *prometheus.GaugeVec
	discovered     prometheus.Gauge
	attempted      prometheus.Gauge
	reconciliation *prometheus.GaugeVec
	duration       prometheus.Gauge
	timestamp      prometheus.Gauge
	lastError      *prometheus.GaugeVec
}

// New creates a recorder with its own registry.
func New() (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "files",
			Help:      "Files counted into each outcome bucket by the last run",
		}, []string{"outcome"}),
		discovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "files_discovered",
			Help:      "Filesystem entries found beneath the dataset root",
		}),
		attempted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "files_attempted",
			Help:      "Candidates handed to an extractor",
		}),
		reconciliation: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconciliation_ok",
			Help:      "1 when the bookkeeping identity held in the last run",
		}, []string{"identity"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
		timestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
		lastError: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_failed",
			Help:      "1 when the last run aborted, labelled by error kind",
		}, []string{"kind"}),
	}
	for _, c := range []prometheus.Collector{
		r.files, r.discovered, r.attempted, r.reconciliation, r.duration, r.timestamp, r.lastError,
	} {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return r, nil
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe records the totals, timing and fatal error of a run.
func (r *Recorder) Observe(totals reconcile.Totals, started, finished time.Time, runErr error) {
	r.files.WithLabelValues(OutcomeSuccess).Set(float64(totals.Success))
	r.files.WithLabelValues(OutcomeMetadataOnly).Set(float64(totals.MetadataOnly))
	r.files.WithLabelValues(OutcomeFailure).Set(float64(totals.Failure))
	r.files.WithLabelValues(OutcomeSkipped).Set(float64(totals.Skipped))
	r.discovered.Set(float64(totals.Discovered))
	r.attempted.Set(float64(totals.Attempted))
	for _, check := range totals.Checks() {
		ok := 0.0
		if check.OK {
			ok = 1
		}
		r.reconciliation.WithLabelValues(check.Name).Set(ok)
	}
	if !started.IsZero() && !finished.IsZero() {
		r.duration.Set(finished.Sub(started).Seconds())
	}
	if !finished.IsZero() {
		r.timestamp.Set(float64(finished.Unix()))
	}
	r.lastError.Reset()
	if runErr != nil {
		r.lastError.WithLabelValues(errkind.Kind(runErr)).Set(1)
	}
}

// WriteTextfile writes the registry to path in the text exposition format.
// The write goes through a temp file so the collector never reads a partial
// file.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
