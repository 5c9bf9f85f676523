package watcher

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/songlist/editor/internal/infrastructure/logger"
)

// DocumentWatcher reports changes to the document file made by anyone other
// than this process. It only observes: nothing is reloaded or locked.
type DocumentWatcher struct {
	path      string
	fsWatcher *fsnotify.Watcher
	changes   prometheus.Counter
	logger    *logger.Logger

	mu          sync.Mutex
	lastWritten []byte
}

// New watches the directory holding path. changes may be nil.
func New(path string, changes prometheus.Counter, logger *logger.Logger) (*DocumentWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve document path: %w", err)
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document directory: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}

	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &DocumentWatcher{
		path:      abs,
		fsWatcher: fsWatcher,
		changes:   changes,
		logger:    logger.WithComponent("document_watcher"),
	}, nil
}

// ObserveWrite records data as written by this process
func (w *DocumentWatcher) ObserveWrite(data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastWritten = append(w.lastWritten[:0], data...)
}

// Run consumes events until ctx is done, then closes the watcher
func (w *DocumentWatcher) Run(ctx context.Context) {
	defer w.fsWatcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warnw("fs watcher returned an error")
		}
	}
}

func (w *DocumentWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}

	if !isExternal(event.Op) {
		return
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 && w.isOwnWrite() {
		return
	}

	w.logger.Warnw("Document changed outside this server", "path", w.path, "op", event.Op.String())
	if w.changes != nil {
		w.changes.Inc()
	}
}

// isOwnWrite compares the file with the last document this process wrote. A
// prefix counts as ours: a plain overwrite truncates before it writes.
func (w *DocumentWatcher) isOwnWrite() bool {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	return w.lastWritten != nil && bytes.HasPrefix(w.lastWritten, data)
}

func isExternal(op fsnotify.Op) bool {
	return op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}
