package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureDirsCreatesMissingDirectories(t *testing.T) {
	tempDir := t.TempDir()
	l := NewLocal(filepath.Join(tempDir, "uploads"), filepath.Join(tempDir, "outputs"))

	if err := l.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs returned error: %v", err)
	}
	for _, dir := range []string{l.UploadDir(), l.OutputDir()} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: err=%v", dir, err)
		}
	}
}

func TestResolveOutputRejectsTraversal(t *testing.T) {
	tempDir := t.TempDir()
	l := NewLocal(filepath.Join(tempDir, "uploads"), filepath.Join(tempDir, "outputs"))
	if err := l.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs returned error: %v", err)
	}

	cases := []string{
		"",
		".",
		"..",
		"../secret.pdf",
		"..\\secret.pdf",
		"nested/secret.pdf",
	}
	for _, name := range cases {
		if _, _, err := l.ResolveOutput(name); !errors.Is(err, ErrInvalidFilename) {
			t.Fatalf("ResolveOutput(%q) = %v, want ErrInvalidFilename", name, err)
		}
	}
}

func TestResolveOutputMissingFile(t *testing.T) {
	tempDir := t.TempDir()
	l := NewLocal(filepath.Join(tempDir, "uploads"), filepath.Join(tempDir, "outputs"))
	if err := l.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs returned error: %v", err)
	}

	if _, _, err := l.ResolveOutput("missing.pdf"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("ResolveOutput(missing) = %v, want fs.ErrNotExist", err)
	}
}

func TestResolveOutputExistingFile(t *testing.T) {
	tempDir := t.TempDir()
	l := NewLocal(filepath.Join(tempDir, "uploads"), filepath.Join(tempDir, "outputs"))
	if err := l.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs returned error: %v", err)
	}

	content := []byte("%PDF-1.4 test")
	if err := os.WriteFile(l.OutputPath("merged_x.pdf"), content, 0o640); err != nil {
		t.Fatalf("failed to write output file: %v", err)
	}

	path, size, err := l.ResolveOutput("merged_x.pdf")
	if err != nil {
		t.Fatalf("ResolveOutput returned error: %v", err)
	}
	if size != int64(len(content)) {
		t.Fatalf("size = %d, want %d", size, len(content))
	}
	if filepath.Dir(path) != l.OutputDir() {
		t.Fatalf("resolved path %s escapes output dir", path)
	}
}
