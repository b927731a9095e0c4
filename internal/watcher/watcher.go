// Package watcher keeps watched directories ingested: existing files are ingested on start,
// and created or modified files after a short debounce.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// DefaultExtensions are the file types the extractor can read.
var DefaultExtensions = []string{".txt", ".md", ".markdown", ".rst", ".html", ".htm", ".pdf", ".docx", ".doc", ".odt", ".rtf", ".xlsx"}

// IngestFunc ingests the file at path. ingested is false when the file was already
// up to date and nothing was written.
type IngestFunc func(ctx context.Context, path string) (ingested bool, err error)

// Stats counts the outcome of every ingest attempt.
type Stats struct {
	Ingested int64
	Skipped  int64
	Failed   int64
}

// Watcher ingests files under a set of root directories as they change.
// Removed files are logged but their documents stay in the store.
type Watcher struct {
	roots      []string
	extensions []string
	recursive  bool
	ingest     IngestFunc
	debounce   time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	stopped bool
	wg      sync.WaitGroup

	ingested atomic.Int64
	skipped  atomic.Int64
	failed   atomic.Int64
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for watch events and ingest failures.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long a file must stay quiet before it is ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithExtensions limits which files are ingested. Empty means DefaultExtensions.
func WithExtensions(exts []string) Option {
	return func(w *Watcher) {
		if len(exts) > 0 {
			w.extensions = exts
		}
	}
}

// WithRecursive sets whether subdirectories are watched. Default true.
func WithRecursive(r bool) Option {
	return func(w *Watcher) { w.recursive = r }
}

// New creates a watcher over roots that hands matching files to ingest.
func New(roots []string, ingest IngestFunc, opts ...Option) *Watcher {
	w := &Watcher{
		roots:      roots,
		extensions: DefaultExtensions,
		recursive:  true,
		ingest:     ingest,
		debounce:   defaultDebounce,
		pending:    make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	return w
}

// Stats reports how many files were ingested, skipped as unchanged, or failed.
func (w *Watcher) Stats() Stats {
	return Stats{Ingested: w.ingested.Load(), Skipped: w.skipped.Load(), Failed: w.failed.Load()}
}

// Run ingests the existing files under every root, then watches for changes until ctx is
// cancelled. Pending debounced ingests are dropped on return; one already running is waited for.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	roots := make([]string, 0, len(w.roots))
	for _, root := range w.roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return err
		}
		if err := w.addDir(fw, abs); err != nil {
			return err
		}
		roots = append(roots, abs)
	}
	w.roots = roots
	w.logger.Info("watching directories",
		zap.Strings("roots", roots),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive))

	for _, root := range roots {
		w.syncDir(ctx, root)
	}

	defer w.stopPending()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fw, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, fw *fsnotify.Watcher, ev fsnotify.Event) {
	path := ev.Name
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			if ev.Has(fsnotify.Create) && w.recursive {
				if err := w.addDir(fw, path); err != nil {
					w.logger.Warn("failed to watch new directory", zap.String("path", path), zap.Error(err))
				}
				w.syncDir(ctx, path)
			}
			return
		}
		if matchExtension(path, w.extensions) {
			w.schedule(ctx, path)
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.cancel(path)
		if matchExtension(path, w.extensions) {
			w.logger.Info("watched file removed; its document is kept", zap.String("path", path))
		}
	}
}

// addDir watches dir, and every directory below it when recursive.
func (w *Watcher) addDir(fw *fsnotify.Watcher, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "watch", Path: dir, Err: errors.New("not a directory")}
	}
	if !w.recursive {
		return fw.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}

// syncDir ingests every matching file under root.
func (w *Watcher) syncDir(ctx context.Context, root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("sync walk failed", zap.String("path", path), zap.Error(err))
			return nil
		}
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if d.IsDir() {
			if path != root && !w.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if matchExtension(path, w.extensions) {
			w.ingestFile(ctx, path)
		}
		return nil
	})
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		if w.stopped {
			w.mu.Unlock()
			return
		}
		w.wg.Add(1)
		w.mu.Unlock()
		defer w.wg.Done()
		w.ingestFile(ctx, path)
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	w.stopped = true
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	ingested, err := w.ingest(ctx, path)
	if err != nil {
		w.failed.Add(1)
		w.logger.Warn("ingest failed", zap.String("path", path), zap.Error(err))
		return
	}
	if !ingested {
		w.skipped.Add(1)
		w.logger.Debug("file unchanged", zap.String("path", path))
		return
	}
	w.ingested.Add(1)
	w.logger.Debug("file ingested", zap.String("path", path))
}

func matchExtension(path string, extensions []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}
