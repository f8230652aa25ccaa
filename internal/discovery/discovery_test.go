package discovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"harvest/internal/errkind"
)

var defaultArchives = []string{".zip", ".rar", ".7z", ".tar", ".gz"}

func entry(name string) Entry {
	return Entry{Path: "/data/vibration/" + name, RelPath: "vibration/" + name, Name: name, Modality: "Vibration"}
}

func TestFilterAppliesRulesInOrder(t *testing.T) {
	input := []Entry{
		entry("0Nm_Normal.mat"),
		entry(".DS_Store"),
		entry("0Nm_BPFI_03.mat:Zone.Identifier"),
		entry("0Nm_BPFO_10.matZone.Identifier"),
		entry("raw.zip"),
		entry("notes.txt"),
		entry("2Nm_Unbalance_0583mg.TDMS"),
		entry(".hidden.zip"),
	}

	part := Filter(input, FilterOptions{ArchiveExtensions: defaultArchives})

	if part.Total() != len(input) {
		t.Fatalf("partition lost entries: %d != %d", part.Total(), len(input))
	}
	var gotCandidates []string
	for _, c := range part.Candidates {
		gotCandidates = append(gotCandidates, c.Name+"="+string(c.Format))
	}
	if diff := cmp.Diff([]string{"0Nm_Normal.mat=mat", "2Nm_Unbalance_0583mg.TDMS=tdms"}, gotCandidates); diff != "" {
		t.Fatalf("candidates mismatch (-want +got):\n%s", diff)
	}
	gotSkipped := map[string]SkipReason{}
	for _, s := range part.Skipped {
		gotSkipped[s.Name] = s.Reason
	}
	wantSkipped := map[string]SkipReason{
		".DS_Store":                       SkipHidden,
		"0Nm_BPFI_03.mat:Zone.Identifier": SkipAlternateStream,
		"0Nm_BPFO_10.matZone.Identifier":  SkipAlternateStream,
		"raw.zip":                         SkipArchive,
		"notes.txt":                       SkipUnsupportedExtension,
		".hidden.zip":                     SkipHidden,
	}
	if diff := cmp.Diff(wantSkipped, gotSkipped); diff != "" {
		t.Fatalf("skipped mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterEmptyInput(t *testing.T) {
	part := Filter(nil, FilterOptions{})
	if part.Total() != 0 || len(part.Candidates) != 0 || len(part.Skipped) != 0 {
		t.Fatalf("expected empty partition, got %+v", part)
	}
}

func TestFilterArchiveWithoutDotPrefix(t *testing.T) {
	part := Filter([]Entry{entry("bundle.RAR")}, FilterOptions{ArchiveExtensions: []string{"rar"}})
	if len(part.Skipped) != 1 || part.Skipped[0].Reason != SkipArchive {
		t.Fatalf("expected archive skip, got %+v", part.Skipped)
	}
}

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, rel := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

func TestWalkOrdersEntriesAndResolvesModality(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"Vibration/0Nm_Normal.mat",
		"vibration/extra/1Nm_BPFI_03.mat",
		"Acoustic/0Nm_BPFO_10.mat",
		"current,temp/0Nm_Misalign.tdms",
		"stray/3Nm_Normal.tdms",
		"stray/readme.md",
		"root.mat",
	)

	modalities := map[string]string{"vibration": "Vibration", "acoustic": "Acoustic", "current,temp": "Temp_Current"}
	entries, err := Walk(context.Background(), root, modalities)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.RelPath+" -> "+e.Modality)
		if !filepath.IsAbs(e.Path) {
			t.Fatalf("expected absolute path, got %q", e.Path)
		}
	}
	want := []string{
		"Acoustic/0Nm_BPFO_10.mat -> Acoustic",
		"Vibration/0Nm_Normal.mat -> Vibration",
		"current,temp/0Nm_Misalign.tdms -> Temp_Current",
		"root.mat -> MAT_Unknown_Path",
		"stray/3Nm_Normal.tdms -> TDMS_Unknown_Path",
		"stray/readme.md -> Unknown_Path",
		"vibration/extra/1Nm_BPFI_03.mat -> Vibration",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("walk mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkMissingRootIsConfigurationError(t *testing.T) {
	_, err := Walk(context.Background(), filepath.Join(t.TempDir(), "absent"), nil)
	if !errors.Is(err, errkind.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestWalkHonoursCancellation(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "vibration/a.mat")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Walk(ctx, root, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
