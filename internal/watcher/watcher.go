// Package watcher indexes manuscript files dropped into a watched folder,
// with fsnotify and per-file debouncing.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/inkhaven/inkdex/internal/corpus"
	"github.com/inkhaven/inkdex/internal/models"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches one drop folder and keeps the documents table in sync with
// its files. A dropped or edited file is (re-)indexed under a path-derived id,
// so edits upsert rather than duplicate; a removed file is deleted from the
// table.
type Watcher struct {
	root       string
	extensions []string
	projectID  string
	corpus     *corpus.Corpus
	debounce   time.Duration

	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
	logger      *zap.Logger // optional; when set, logs debug events
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the per-file debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher over root. extensions filter which files are
// indexed (empty = all); indexed records carry projectID.
func NewWatcher(root string, extensions []string, projectID string, c *corpus.Corpus, opts ...Option) *Watcher {
	w := &Watcher{
		root:        filepath.Clean(root),
		extensions:  extensions,
		projectID:   projectID,
		corpus:      c,
		debounce:    defaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. The drop folder is created when absent and its
// existing files are indexed once at startup. Runs until ctx is cancelled or
// Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	if _, err := os.Stat(w.root); os.IsNotExist(err) {
		if err := os.MkdirAll(w.root, 0755); err != nil {
			w.mu.Unlock()
			return err
		}
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := watcher.Add(w.root); err != nil {
		_ = watcher.Close()
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	w.mu.Unlock()

	if w.logger != nil {
		w.logger.Debug("watcher starting",
			zap.String("root", w.root),
			zap.Strings("extensions", w.extensions),
			zap.String("project_id", w.projectID))
	}
	w.syncExisting(ctx)
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	path := ev.Name
	if !w.matchExtension(path) {
		return
	}
	if w.logger != nil {
		w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	}
	switch {
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return
		}
		w.debounceIndex(ctx, path)
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		w.cancelDebounce(path)
		w.removeFile(ctx, path)
	}
}

// syncExisting indexes whatever is already sitting in the drop folder.
func (w *Watcher) syncExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		if w.logger != nil {
			w.logger.Debug("watcher sync failed", zap.Error(err))
		}
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(w.root, e.Name())
		if w.matchExtension(path) {
			w.indexFile(ctx, path)
		}
	}
}

func (w *Watcher) matchExtension(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range w.extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

func (w *Watcher) debounceIndex(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	t := time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		w.indexFile(ctx, path)
	})
	w.debounceMap[path] = t
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

func (w *Watcher) indexFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if w.logger != nil {
			w.logger.Debug("watcher read failed", zap.String("path", path), zap.Error(err))
		}
		return
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return
	}
	name := filepath.Base(path)
	_, err = w.corpus.IndexDocument(ctx, &models.DocumentInput{
		ID:        FileID(name),
		Title:     strings.TrimSuffix(name, filepath.Ext(name)),
		Content:   string(data),
		ProjectID: w.projectID,
		Source:    "watch:" + name,
	})
	if err != nil {
		if w.logger != nil {
			w.logger.Warn("watcher index failed", zap.String("path", path), zap.Error(err))
		}
		return
	}
	if w.logger != nil {
		w.logger.Info("file indexed", zap.String("path", path))
	}
}

func (w *Watcher) removeFile(ctx context.Context, path string) {
	if err := w.corpus.Delete(ctx, corpus.KindDocuments, FileID(filepath.Base(path))); err != nil {
		if w.logger != nil {
			w.logger.Warn("watcher delete failed", zap.String("path", path), zap.Error(err))
		}
		return
	}
	if w.logger != nil {
		w.logger.Info("file removed from index", zap.String("path", path))
	}
}

// FileID derives the stable record id for a dropped file from its name, so
// re-drops and edits of the same file upsert the same record.
func FileID(name string) string {
	return "file:" + name
}

// Stop stops the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		for path, t := range w.debounceMap {
			t.Stop()
			delete(w.debounceMap, path)
		}
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
		w.mu.Unlock()
	})
}
