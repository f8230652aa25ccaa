package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"harvest/internal/config"
)

func TestCheckReadableDir_OK(t *testing.T) {
	result := CheckReadableDir("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckReadableDir_NotExist(t *testing.T) {
	result := CheckReadableDir("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckReadableDir_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckReadableDir("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckOutputTarget_MissingParentsAllowed(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b", "out.db")
	result := CheckOutputTarget("test", target)
	if !result.Passed {
		t.Fatalf("expected pass when ancestors are creatable, got: %s", result.Detail)
	}
}

func TestCheckOutputTarget_RejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	result := CheckOutputTarget("test", dir)
	if result.Passed {
		t.Fatal("expected failure when the target is a directory")
	}
}

func TestCheckOutputTarget_ParentIsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckOutputTarget("test", filepath.Join(f, "out.db")); result.Passed {
		t.Fatal("expected failure when the parent is a regular file")
	}
}

func TestRunAll(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DatasetDir = filepath.Join(base, "missing")
	cfg.Paths.OutputPath = filepath.Join(base, "out", "store.db")
	cfg.Metrics.Textfile = filepath.Join(base, "metrics", "harvest.prom")

	results := RunAll(&cfg)
	if len(results) != 3 {
		t.Fatalf("expected three checks, got %d", len(results))
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Dataset directory" {
		t.Fatalf("expected only the dataset check to fail, got %+v", failed)
	}
	if !strings.Contains(Summarize(failed), "Dataset directory: ") {
		t.Fatalf("unexpected summary %q", Summarize(failed))
	}
	if RunAll(nil) != nil {
		t.Fatal("expected nil results for nil config")
	}
}
