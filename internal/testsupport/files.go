package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteBytes writes raw content to path, creating parent directories.
func WriteBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteFile writes size filler bytes to path, at least one. It stands in for
// dataset clutter the walker must see but never decode: archives, notes,
// sidecar streams.
func WriteFile(t testing.TB, path string, size int) {
	t.Helper()
	WriteBytes(t, path, bytes.Repeat([]byte{'B'}, max(size, 1)))
}
