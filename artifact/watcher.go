package artifact

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// watchChannelBuffer is the size of the watch event channel.
	watchChannelBuffer = 64

	// defaultDebounce is how long to wait for more changes before emitting.
	defaultDebounce = 250 * time.Millisecond
)

// WatchOp indicates what happened to an artifact file.
type WatchOp string

// WatchOpWrite and WatchOpRemove enumerate the artifact watch operations.
const (
	WatchOpWrite  WatchOp = "write"
	WatchOpRemove WatchOp = "remove"
)

// WatchEvent reports a change to one artifact in a workflow directory.
type WatchEvent struct {
	Type    Type
	Op      WatchOp
	Path    string
	Size    int64
	ModTime time.Time
}

// Watcher emits events as a pipeline run writes artifacts into a workflow
// directory. Used by operator tooling to follow a run live; the pipeline
// itself never consumes these events.
type Watcher struct {
	dir      string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	// Debouncing: collect changes before emitting.
	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	events  chan WatchEvent
	dropped atomic.Int64
}

// NewWatcher creates a watcher over one workflow's artifact directory.
func NewWatcher(dir string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		dir:      dir,
		debounce: defaultDebounce,
		watcher:  fsw,
		logger:   logger,
		pending:  make(map[string]fsnotify.Op),
		events:   make(chan WatchEvent, watchChannelBuffer),
	}, nil
}

// Events returns the channel of artifact change events.
func (w *Watcher) Events() <-chan WatchEvent {
	return w.events
}

// Start begins watching. The events channel is closed when ctx is done or
// the watcher is stopped.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	go w.processEvents(ctx)
	w.logger.Debug("Artifact watcher started", "dir", w.dir)
	return nil
}

// Stop stops the watcher. The events channel is closed by processEvents.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// DroppedEvents returns the number of events dropped due to a full channel.
func (w *Watcher) DroppedEvents() int64 {
	return w.dropped.Load()
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if !strings.HasSuffix(name, ".json") {
		return
	}
	// Temp files from atomic writes start with a dot.
	if strings.HasPrefix(name, ".") {
		return
	}
	t := Type(strings.TrimSuffix(name, ".json"))
	if !t.Valid() {
		return
	}

	w.pendingMu.Lock()
	w.pending[event.Name] |= event.Op
	w.pendingMu.Unlock()
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toEmit := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	for path, op := range toEmit {
		t := Type(strings.TrimSuffix(filepath.Base(path), ".json"))
		event := WatchEvent{Type: t, Path: path}

		fi, err := os.Stat(path)
		switch {
		case err == nil:
			event.Op = WatchOpWrite
			event.Size = fi.Size()
			event.ModTime = fi.ModTime()
		case op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) || os.IsNotExist(err):
			event.Op = WatchOpRemove
		default:
			w.logger.Warn("Failed to stat changed artifact", "path", path, "error", err)
			continue
		}

		w.sendEvent(event)
	}
}

func (w *Watcher) sendEvent(event WatchEvent) {
	select {
	case w.events <- event:
	default:
		dropped := w.dropped.Add(1)
		w.logger.Warn("Event channel full, dropping event",
			"artifact_type", event.Type,
			"total_dropped", dropped)
	}
}
