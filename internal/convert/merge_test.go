package convert

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMergeDirEmptyDirectory(t *testing.T) {
	merger := NewPDFMerger()
	err := merger.MergeDir(t.TempDir(), filepath.Join(t.TempDir(), "out.pdf"))
	if err == nil {
		t.Fatal("expected error for directory without PDFs")
	}
	if !strings.Contains(err.Error(), "見つかりませんでした") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMergeDirMissingDirectory(t *testing.T) {
	merger := NewPDFMerger()
	err := merger.MergeDir(filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "out.pdf"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestMergeDirIgnoresNonPDFEntries(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o640); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub.pdf"), 0o750); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	merger := NewPDFMerger()
	err := merger.MergeDir(dir, filepath.Join(t.TempDir(), "out.pdf"))
	if err == nil {
		t.Fatal("expected error: only non-PDF entries present")
	}
	if !strings.Contains(err.Error(), "見つかりませんでした") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMergeFilesEmptyInput(t *testing.T) {
	merger := NewPDFMerger()
	if err := merger.MergeFiles(nil, filepath.Join(t.TempDir(), "out.pdf")); err == nil {
		t.Fatal("expected error for empty input list")
	}
}
