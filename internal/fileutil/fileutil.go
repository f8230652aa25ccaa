// Package fileutil holds the atomic publish helpers used for every artifact
// harvest writes: a sibling temp file is filled, synced, and renamed over the
// target so a reader never observes a half-written file.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// PartialPath returns the sibling temp path used while target is being
// written. tag distinguishes concurrent writers (typically a run id).
func PartialPath(target, tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		tag = "tmp"
	}
	return target + ".partial-" + tag
}

// Publish moves a fully written temp file over target and syncs the parent
// directory so the rename is durable.
func Publish(tempPath, target string) error {
	if err := os.Rename(tempPath, target); err != nil {
		return fmt.Errorf("publish %s: %w", filepath.Base(target), err)
	}
	if dir, err := os.Open(filepath.Dir(target)); err == nil {
		_ = dir.Sync()
		_ = dir.Close()
	}
	return nil
}

// Discard removes a temp file, ignoring a file that is already gone.
func Discard(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// WriteFileAtomic writes data to path through a partial file and Publish.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".partial-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = Discard(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = Discard(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = Discard(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		_ = Discard(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := Publish(tmpPath, path); err != nil {
		_ = Discard(tmpPath)
		return err
	}
	return nil
}
