package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPartialPath(t *testing.T) {
	if got := PartialPath("/data/out.db", "abc"); got != "/data/out.db.partial-abc" {
		t.Fatalf("unexpected partial path %q", got)
	}
	if got := PartialPath("/data/out.db", " "); !strings.HasSuffix(got, ".partial-tmp") {
		t.Fatalf("expected tmp fallback tag, got %q", got)
	}
}

func TestPublishReplacesTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.db")
	if err := os.WriteFile(target, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	tmp := PartialPath(target, "run")
	if err := os.WriteFile(tmp, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Publish(tmp, target); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Fatalf("content mismatch: got %q", got)
	}
	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Fatalf("expected temp file gone, stat err=%v", err)
	}
}

func TestDiscardMissingFileIsNoop(t *testing.T) {
	if err := Discard(filepath.Join(t.TempDir(), "absent")); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := Discard(""); err != nil {
		t.Fatalf("expected nil for empty path, got %v", err)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "report.csv")

	if err := WriteFileAtomic(path, []byte("a,b\n"), 0o640); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "a,b\n" {
		t.Fatalf("content mismatch: got %q", got)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the published file, got %d entries", len(entries))
	}
}
