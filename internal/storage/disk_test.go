package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()

	f1 := filepath.Join(dir, "f1.txt")
	if err := os.WriteFile(f1, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := DiskUsageBytes(f1)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("single file: got %d bytes, want 5", got)
	}

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a"), []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = DiskUsageBytes(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got != 7 {
		t.Errorf("directory: got %d bytes, want 7", got)
	}

	got, err = DiskUsageBytes(filepath.Join(dir, "missing"), "", f1)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("missing paths should count as zero, got %d", got)
	}
}

func TestDatabaseFiles(t *testing.T) {
	files := DatabaseFiles("/tmp/k.db")
	if len(files) != 3 || files[1] != "/tmp/k.db-wal" || files[2] != "/tmp/k.db-shm" {
		t.Errorf("DatabaseFiles = %v", files)
	}
}
