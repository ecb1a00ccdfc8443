package shader

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"Forge3D/internal/logger"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Watcher queues changes to shader files under a directory. The queue is
// drained by Apply, which must run on the render thread.
type Watcher struct {
	mgr  *Manager
	root string
	fsw  *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewWatcher watches root and every directory below it. Paths handed to
// the manager are relative to root, so the manager's assets should be
// os.DirFS(root).
func NewWatcher(mgr *Manager, root string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		mgr:     mgr,
		root:    root,
		fsw:     fsw,
		pending: make(map[string]struct{}),
	}
	if err := w.addTree(root, false); err != nil {
		fsw.Close()
		return nil, err
	}
	go w.run()
	logger.Log.Info("Watching shader sources", zap.String("root", root))
	return w, nil
}

// addTree watches dir and every directory below it. With queueFiles set the
// files already present are queued too, since they may have been written
// before the watch was in place.
func (w *Watcher) addTree(dir string, queueFiles bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		if queueFiles {
			w.queue(path)
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Log.Warn("Shader watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name, true); err != nil {
				logger.Log.Warn("Shader directory not watched", zap.String("dir", ev.Name), zap.Error(err))
			}
			return
		}
	}
	w.queue(ev.Name)
}

func (w *Watcher) queue(path string) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return
	}
	w.enqueue(filepath.ToSlash(rel))
}

func (w *Watcher) enqueue(path string) {
	w.mu.Lock()
	w.pending[path] = struct{}{}
	w.mu.Unlock()
}

// Apply reloads every source changed since the last call.
func (w *Watcher) Apply() error {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	sort.Strings(paths)
	var err error
	for _, p := range paths {
		err = multierr.Append(err, w.mgr.ReloadSource(p))
	}
	return err
}

func (w *Watcher) Close() error {
	return w.fsw.Close()
}
