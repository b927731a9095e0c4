package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu      sync.Mutex
	paths   []string
	fail    map[string]bool
	current map[string]bool
}

func (r *recorder) ingest(_ context.Context, path string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[filepath.Base(path)] {
		return false, errors.New("extract failed")
	}
	if r.current[filepath.Base(path)] {
		return false, nil
	}
	r.paths = append(r.paths, path)
	return true, nil
}

func (r *recorder) count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.paths {
		if p == path {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func start(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run: %v", err)
		}
	})
}

func TestWatcher_SyncsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		filepath.Join(dir, "a.txt"):    "a",
		filepath.Join(sub, "b.md"):     "b",
		filepath.Join(dir, "c.png"):    "c",
		filepath.Join(dir, "bad.txt"):  "x",
		filepath.Join(dir, "same.txt"): "s",
	}
	for p, c := range files {
		if err := os.WriteFile(p, []byte(c), 0600); err != nil {
			t.Fatal(err)
		}
	}

	r := &recorder{fail: map[string]bool{"bad.txt": true}, current: map[string]bool{"same.txt": true}}
	w := New([]string{dir}, r.ingest)
	start(t, w)

	waitFor(t, func() bool {
		return w.Stats() == Stats{Ingested: 2, Skipped: 1, Failed: 1}
	})
	if r.count(filepath.Join(sub, "b.md")) != 1 {
		t.Error("file in subdirectory was not ingested")
	}
	if r.count(filepath.Join(dir, "c.png")) != 0 {
		t.Error("unsupported extension was ingested")
	}
}

func TestWatcher_DebouncedWrites(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{}
	w := New([]string{dir}, r.ingest, WithDebounce(50*time.Millisecond), WithExtensions([]string{"txt"}))
	start(t, w)
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "notes.txt")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("draft"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, func() bool { return r.count(path) >= 1 })
	time.Sleep(150 * time.Millisecond)
	if n := r.count(path); n != 1 {
		t.Errorf("burst of writes ingested %d times, want 1", n)
	}

	sub := filepath.Join(dir, "new")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	nested := filepath.Join(sub, "later.txt")
	if err := os.WriteFile(nested, []byte("later"), 0600); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return r.count(nested) >= 1 })
}

func TestWatcher_MissingRoot(t *testing.T) {
	w := New([]string{filepath.Join(t.TempDir(), "missing")}, (&recorder{}).ingest)
	if err := w.Run(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("want not-exist error, got %v", err)
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path string
		exts []string
		want bool
	}{
		{"a.txt", []string{".txt"}, true},
		{"A.PDF", []string{".pdf"}, true},
		{"a.md", []string{"md"}, true},
		{"a.png", DefaultExtensions, false},
		{"noext", DefaultExtensions, false},
	}
	for _, tt := range tests {
		if got := matchExtension(tt.path, tt.exts); got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.exts, got, tt.want)
		}
	}
}
