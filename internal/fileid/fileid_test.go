package fileid

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileDocID(t *testing.T) {
	id1 := FileDocID("/foo/bar.txt")
	id2 := FileDocID("/foo/bar.txt")
	if id1 != id2 {
		t.Errorf("same path should give same ID: %q vs %q", id1, id2)
	}
	if !strings.HasPrefix(id1, prefix) {
		t.Errorf("ID should have prefix %q: got %q", prefix, id1)
	}
	if len(id1) != len(prefix)+hashLen {
		t.Errorf("ID length = %d", len(id1))
	}
	if FileDocID("/foo/baz.txt") == id1 {
		t.Error("different paths should give different IDs")
	}
	if FileDocID("/foo/./bar.txt") != id1 {
		t.Error("equivalent paths should give the same ID")
	}
}

func TestForPath(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	id, abs, err := ForPath("doc.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(abs) {
		t.Errorf("path not absolute: %s", abs)
	}
	if id != FileDocID(abs) {
		t.Error("ForPath and FileDocID disagree")
	}
}
