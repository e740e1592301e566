// Package watch reports changed documents under a source tree so that a
// build can be rerun.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Op is the kind of change seen for a path.
type Op string

const (
	OpWrite  Op = "write"
	OpRemove Op = "remove"
)

// Change is one debounced change, with Path relative to the root.
type Change struct {
	Path string
	Op   Op
}

// Watcher watches a directory tree for document changes.
type Watcher struct {
	root       string
	debounce   time.Duration
	extensions map[string]bool
	skip       map[string]bool
	fsw        *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]fsnotify.Op
}

// New watches root. skip lists directories, relative to root, that are
// never watched; hidden directories are skipped as well.
func New(root string, debounce time.Duration, extensions, skip []string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	if len(extensions) == 0 {
		extensions = []string{".md"}
	}
	w := &Watcher{
		root:       root,
		debounce:   debounce,
		extensions: make(map[string]bool, len(extensions)),
		skip:       make(map[string]bool, len(skip)),
		fsw:        fsw,
		pending:    make(map[string]fsnotify.Op),
	}
	for _, ext := range extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		w.extensions[ext] = true
	}
	for _, s := range skip {
		w.skip[filepath.Clean(s)] = true
	}
	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops watching. Run returns once its context is done or the
// watcher is closed.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) skipped(dir string) bool {
	if dir == w.root {
		return false
	}
	rel, err := filepath.Rel(w.root, dir)
	if err != nil {
		return true
	}
	base := filepath.Base(dir)
	return w.skip[rel] || strings.HasPrefix(base, ".")
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.skipped(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			slog.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// Run delivers batches of changes to fn until ctx is done. A batch is
// flushed once no new change arrived for the debounce interval.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context, []Change)) error {
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(event) {
				last = time.Now()
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Error("watcher error", "error", err)

		case <-ticker.C:
			if time.Since(last) < w.debounce {
				continue
			}
			if changes := w.flush(); len(changes) > 0 {
				fn(ctx, changes)
			}
		}
	}
}

// handle records event and reports whether it was relevant.
func (w *Watcher) handle(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.skipped(event.Name) {
				if err := w.addRecursive(event.Name); err != nil {
					slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
				}
			}
			return false
		}
	}
	if !w.extensions[strings.ToLower(filepath.Ext(event.Name))] {
		return false
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") || w.skipped(filepath.Dir(event.Name)) {
		return false
	}

	w.mu.Lock()
	w.pending[event.Name] |= event.Op
	w.mu.Unlock()
	slog.Debug("document change detected", "path", event.Name, "op", event.Op.String())
	return true
}

func (w *Watcher) flush() []Change {
	w.mu.Lock()
	pending := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.mu.Unlock()

	changes := make([]Change, 0, len(pending))
	for path := range pending {
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			continue
		}
		op := OpWrite
		if _, err := os.Stat(path); os.IsNotExist(err) {
			op = OpRemove
		}
		changes = append(changes, Change{Path: filepath.ToSlash(rel), Op: op})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes
}
