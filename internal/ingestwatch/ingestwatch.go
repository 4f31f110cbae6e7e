// Package ingestwatch watches the optional ingest_path drop-folder for
// locally supplied PDFs and turns each settled file into a manual-source
// Candidate (spec §6, "ingest_path"). Adapted from the teacher's
// internal/watcher.Watcher (fsnotify, debounced create/write handling,
// recursive root add/remove) with the document-indexing callback replaced
// by a candidate-producing one and the file filter narrowed to PDFs.
package ingestwatch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/paperflow/internal/classify"
	"github.com/hyperjump/paperflow/internal/hashing"
	"github.com/hyperjump/paperflow/internal/models"
)

const defaultDebounce = 2 * time.Second

// OnCandidate is invoked once per settled PDF dropped into a watched directory.
type OnCandidate func(models.Candidate)

// Watcher watches one or more drop-folders for new PDFs.
type Watcher struct {
	onCandidate OnCandidate
	debounce    time.Duration
	logger      *zap.Logger

	mu          sync.Mutex
	roots       []string
	watcher     *fsnotify.Watcher
	debounceMap map[string]*time.Timer
	started     bool
	stopOnce    sync.Once
	done        chan struct{}
}

// New constructs a Watcher. roots are the initial drop-folders; onCandidate
// is called from the watcher's own goroutine, so it should not block.
func New(roots []string, onCandidate OnCandidate, logger *zap.Logger) *Watcher {
	return &Watcher{
		onCandidate: onCandidate,
		debounce:    defaultDebounce,
		logger:      logger,
		roots:       roots,
		debounceMap: make(map[string]*time.Timer),
		done:        make(chan struct{}),
	}
}

// Start begins watching until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("ingestwatch: create fsnotify watcher: %w", err)
	}
	w.watcher = fw
	w.started = true
	for _, root := range w.roots {
		if err := w.addRootLocked(root); err != nil {
			_ = fw.Close()
			w.watcher = nil
			w.started = false
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()

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
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Warn("ingestwatch: fsnotify error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		info, err := os.Stat(ev.Name)
		if err == nil && info.IsDir() {
			w.addRootIfMissing(ev.Name)
			return
		}
		if isPDF(ev.Name) {
			w.debounceCandidate(ev.Name)
		}
	case ev.Op&fsnotify.Remove != 0:
		w.cancelDebounce(ev.Name)
	}
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// debounceCandidate waits for the drop-folder write to settle (a large
// manual copy can fire several Write events) before producing a candidate.
func (w *Watcher) debounceCandidate(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		w.emit(path)
	})
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

func (w *Watcher) emit(path string) {
	if w.onCandidate == nil {
		return
	}
	title := titleFromFilename(path)
	c := models.Candidate{
		ID:            filepath.Base(path),
		Title:         title,
		Source:        "manual",
		SourceURL:     "file://" + filepath.ToSlash(path),
		PdfPath:       path,
		PublishedDate: time.Now().Format("2006-01-02"),
	}
	if w.logger != nil {
		w.logger.Info("ingestwatch: candidate from drop-folder", zap.String("path", path), zap.String("category", classify.Classify(title, "", "")))
	}
	w.onCandidate(c)
}

func titleFromFilename(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base = strings.ReplaceAll(base, "_", " ")
	base = strings.ReplaceAll(base, "-", " ")
	return strings.Join(strings.Fields(base), " ")
}

// Hash returns the dedup key for a manually ingested candidate, stable
// across repeated drops of the same file path.
func Hash(c models.Candidate) int64 {
	return hashing.StableHash(hashing.NormalizeURL(c.SourceURL))
}

// AddDirectory starts watching an additional drop-folder at runtime.
func (w *Watcher) AddDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	for _, r := range w.roots {
		if filepath.Clean(r) == abs {
			return nil
		}
	}
	if err := w.addRootLocked(abs); err != nil {
		return err
	}
	w.roots = append(w.roots, abs)
	return nil
}

func (w *Watcher) addRootIfMissing(dir string) {
	_ = w.AddDirectory(dir)
}

func (w *Watcher) addRootLocked(root string) error {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		if err := os.MkdirAll(root, 0755); err != nil {
			return fmt.Errorf("ingestwatch: create drop-folder %s: %w", root, err)
		}
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// RemoveDirectory stops watching root; files already ingested are unaffected.
func (w *Watcher) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := -1
	for i, r := range w.roots {
		if filepath.Clean(r) == abs {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	if w.watcher != nil {
		_ = w.watcher.Remove(abs)
	}
	w.roots = append(w.roots[:idx], w.roots[idx+1:]...)
	return nil
}

// Directories returns the current set of watched drop-folders.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// Stop releases the underlying fsnotify watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
