package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"harvest/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The dataset root exists and is empty; the output store does not exist yet.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DatasetDir = filepath.Join(base, "dataset")
	cfgVal.Paths.OutputPath = filepath.Join(base, "out", "extracted_dataset.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	if err := os.MkdirAll(cfgVal.Paths.DatasetDir, 0o755); err != nil {
		t.Fatalf("mkdir dataset dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAllChannels clears the TDMS channel list so every channel in the group
// is read.
func WithAllChannels() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TDMS.Channels = nil
	}
}

// WithMetricsTextfile points the metrics export at a file under the base dir.
func WithMetricsTextfile() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metrics.Textfile = filepath.Join(b.baseDir, "metrics", "harvest.prom")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DatasetDir)
}
