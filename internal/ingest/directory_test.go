package ingest

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func touch(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		p := filepath.Join(root, r)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"b.pdf",
		"a.JPG",
		"notes.docx",
		"sub/c.txt",
		".hidden/d.pdf",
		".e.pdf",
	)

	paths, failed, stats, err := ScanDirectory(root, nil, true)
	if err != nil {
		t.Fatalf("ScanDirectory: %v", err)
	}
	want := []string{
		filepath.Join(root, "a.JPG"),
		filepath.Join(root, "b.pdf"),
		filepath.Join(root, "sub", "c.txt"),
	}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
	if len(failed) != 0 {
		t.Errorf("failed = %v", failed)
	}
	if stats.Scanned != 4 || stats.Matched != 3 {
		t.Errorf("stats = %+v, want 4 scanned, 3 matched", stats)
	}

	paths, _, _, err = ScanDirectory(root, []string{".PDF"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 {
		t.Errorf("pdf with hidden = %v, want 3 paths", paths)
	}
}

func TestScanDirectory_Errors(t *testing.T) {
	if _, _, _, err := ScanDirectory("  ", nil, false); err == nil {
		t.Error("empty root accepted")
	}
	if _, _, _, err := ScanDirectory(filepath.Join(t.TempDir(), "missing"), nil, false); err == nil {
		t.Error("missing root accepted")
	}
}
