package convert

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestDiscoverDocumentsNested(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.html"), "<html></html>")
	writeFile(t, filepath.Join(root, "a", "1.html"), "<html></html>")
	writeFile(t, filepath.Join(root, "a", "deep", "2.HTM"), "<html></html>")
	writeFile(t, filepath.Join(root, "ignore.txt"), "not a document")
	writeFile(t, filepath.Join(root, "a", "style.css"), "body {}")

	docs, err := DiscoverDocuments(root)
	if err != nil {
		t.Fatalf("DiscoverDocuments returned error: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("found %d documents, want 3: %#v", len(docs), docs)
	}
	if !sort.StringsAreSorted(docs) {
		t.Fatalf("documents must be sorted lexicographically: %#v", docs)
	}
}

func TestDiscoverDocumentsCaseInsensitiveExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "UPPER.HTML"), "<html></html>")
	writeFile(t, filepath.Join(root, "mixed.Htm"), "<html></html>")

	docs, err := DiscoverDocuments(root)
	if err != nil {
		t.Fatalf("DiscoverDocuments returned error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("found %d documents, want 2: %#v", len(docs), docs)
	}
}

func TestDiscoverDocumentsEmptyTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "only", "readme.txt"), "no documents here")

	docs, err := DiscoverDocuments(root)
	if err != nil {
		t.Fatalf("DiscoverDocuments returned error: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected empty result, got %#v", docs)
	}
}

func TestDiscoverDocumentsSkipsSymlinkedDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "real", "1.html"), "<html></html>")

	// 循環するリンクを張っても走査が停止しないこと
	link := filepath.Join(root, "loop")
	if err := os.Symlink(root, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	docs, err := DiscoverDocuments(root)
	if err != nil {
		t.Fatalf("DiscoverDocuments returned error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("found %d documents, want 1: %#v", len(docs), docs)
	}
}
