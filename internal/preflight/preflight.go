package preflight

import (
	"path/filepath"
	"strings"

	"harvest/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable check for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckReadableDir("Dataset directory", cfg.Paths.DatasetDir),
		CheckOutputTarget("Output artifact", cfg.Paths.OutputPath),
	}

	if strings.TrimSpace(cfg.Metrics.Textfile) != "" {
		results = append(results, CheckOutputTarget("Metrics textfile", cfg.Metrics.Textfile))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Summarize joins failed results into one line.
func Summarize(results []Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.Name+": "+r.Detail)
	}
	return strings.Join(parts, "; ")
}

// nearestExisting walks up from dir to the first ancestor that exists.
func nearestExisting(dir string, exists func(string) bool) string {
	for {
		if exists(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
