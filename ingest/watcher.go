package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// batchChannelBuffer is the size of the outgoing batch channel.
const batchChannelBuffer = 8

// mimeByExtension maps drop-directory file extensions to MIME types.
var mimeByExtension = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".html": "text/html",
	".htm":  "text/html",
	".json": "application/json",
	".pdf":  "application/pdf",
}

// Watcher watches a drop directory for new attachments and emits debounced
// batches ready for Pipeline.Upload. Files landing within one debounce
// window form a single batch.
type Watcher struct {
	dir      string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]struct{}
	timer     *time.Timer

	batches chan []File
}

// NewWatcher creates a watcher for dir. The directory must already exist.
func NewWatcher(dir string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{
		dir:      dir,
		debounce: debounce,
		watcher:  fsw,
		logger:   logger,
		pending:  make(map[string]struct{}),
		batches:  make(chan []File, batchChannelBuffer),
	}, nil
}

// Batches returns the channel of debounced attachment batches.
func (w *Watcher) Batches() <-chan []File { return w.batches }

// Run processes filesystem events until ctx is cancelled or the watcher is
// closed. It is intended to run on its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if _, known := mimeByExtension[strings.ToLower(filepath.Ext(event.Name))]; !known {
				continue
			}
			w.enqueue(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", slog.String("error", err.Error()))
		}
	}
}

// enqueue adds a path to the pending set and restarts the flush timer, so
// a burst of writes produces one batch.
func (w *Watcher) enqueue(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	var batch []File
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			w.logger.Warn("failed to read dropped file",
				slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		batch = append(batch, File{
			Name: filepath.Base(path),
			Size: int64(len(data)),
			Type: mimeByExtension[strings.ToLower(filepath.Ext(path))],
			Data: data,
		})
	}
	if len(batch) == 0 {
		return
	}
	select {
	case w.batches <- batch:
	default:
		w.logger.Warn("batch channel full, dropping batch", slog.Int("files", len(batch)))
	}
}

// Close stops the watcher and releases its resources.
func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.watcher.Close()
}
