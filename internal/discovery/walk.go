package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"harvest/internal/errkind"
	"harvest/internal/textutil"
)

// Walk lists every file beneath root in lexical order. Directories are not
// entries; symlinks are listed but not followed. modalities maps a directory
// name to its modality tag and is matched case-insensitively against the
// nearest ancestor directory first.
func Walk(ctx context.Context, root string, modalities map[string]string) ([]Entry, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errkind.Wrap(errkind.ErrConfiguration, "discovery", "resolve root", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, errkind.Wrap(errkind.ErrConfiguration, "discovery", "stat root", absRoot, err)
	}
	if !info.IsDir() {
		return nil, errkind.Wrap(errkind.ErrConfiguration, "discovery", "stat root", absRoot+" is not a directory", nil)
	}

	folded := make(map[string]string, len(modalities))
	for dir, tag := range modalities {
		if key := textutil.Fold(dir); key != "" {
			folded[key] = tag
		}
	}

	var entries []Entry
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		mode := d.Type()
		if !mode.IsRegular() && mode&fs.ModeSymlink == 0 {
			return nil
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{
			Path:     path,
			RelPath:  filepath.ToSlash(rel),
			Name:     d.Name(),
			Dir:      filepath.Dir(path),
			Modality: resolveModality(rel, d.Name(), folded),
		})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, errkind.Wrap(errkind.ErrConfiguration, "discovery", "walk", absRoot, err)
	}
	return entries, nil
}

// resolveModality walks the relative directory chain upward and returns the
// tag of the first directory found in the table.
func resolveModality(rel, name string, folded map[string]string) string {
	dirs := strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/")
	for i := len(dirs) - 1; i >= 0; i-- {
		if dirs[i] == "." || dirs[i] == "" {
			continue
		}
		if tag, ok := folded[textutil.Fold(dirs[i])]; ok {
			return tag
		}
	}
	return fallbackModality(name)
}

func fallbackModality(name string) string {
	switch FormatFromName(name) {
	case FormatMAT:
		return UnknownMATModality
	case FormatTDMS:
		return UnknownTDMSModality
	default:
		return UnknownModality
	}
}

// String renders a skip for log lines and reports.
func (s Skipped) String() string {
	return fmt.Sprintf("%s (%s)", s.RelPath, s.Reason)
}
