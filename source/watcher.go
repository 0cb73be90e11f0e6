package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// eventBuffer is the size of the watch event channel.
	eventBuffer = 500

	// DefaultDebounce is how long changes are collected before they are
	// reported.
	DefaultDebounce = 500 * time.Millisecond
)

// Op is the kind of change a watch event reports.
type Op string

// OpCreate, OpModify and OpDelete enumerate the watch operations.
const (
	OpCreate Op = "create"
	OpModify Op = "modify"
	OpDelete Op = "delete"
)

// Event reports a changed song file.
type Event struct {
	// Path is the file path relative to the watched directory.
	Path string

	// AbsPath is the path as seen by the watcher.
	AbsPath string

	Op Op
}

// WatchOptions configures a Watcher.
type WatchOptions struct {
	// Debounce is how long to wait for more changes before reporting.
	Debounce time.Duration

	// Extensions lists the song file extensions to watch. Empty watches
	// every file.
	Extensions []string

	// ExcludeDirs lists directory names to skip.
	ExcludeDirs []string
}

// Watcher reports changes of song files below a directory. Changes are
// debounced and files whose content did not change are not reported.
type Watcher struct {
	dir        string
	debounce   time.Duration
	extensions []string
	excludes   map[string]bool
	fsw        *fsnotify.Watcher
	logger     *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	hashMu sync.RWMutex
	hashes map[string]string

	events  chan Event
	dropped atomic.Int64
}

// NewWatcher creates a watcher for dir.
func NewWatcher(dir string, opts WatchOptions, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	excludes := map[string]bool{".git": true}
	for _, d := range opts.ExcludeDirs {
		excludes[d] = true
	}

	return &Watcher{
		dir:        dir,
		debounce:   opts.Debounce,
		extensions: opts.Extensions,
		excludes:   excludes,
		fsw:        fsw,
		logger:     logger,
		pending:    make(map[string]fsnotify.Op),
		hashes:     make(map[string]string),
		events:     make(chan Event, eventBuffer),
	}, nil
}

// Events returns the channel of change events. It is closed when the
// watcher stops.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start records the current content of every song file and begins
// watching. Events are delivered until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	err := w.addWatches(w.dir, func(path string) {
		if content, err := os.ReadFile(path); err == nil {
			w.setHash(w.rel(path), contentHash(content))
		}
	})
	if err != nil {
		return err
	}
	go w.processEvents(ctx)

	w.logger.Info("Song watcher started",
		"dir", w.dir,
		"debounce", w.debounce,
		"extensions", w.extensions)
	return nil
}

// Stop stops the watcher. The events channel is closed by the event loop
// when it exits.
func (w *Watcher) Stop() error {
	return w.fsw.Close()
}

// DroppedEvents returns the number of events dropped because the channel
// was full.
func (w *Watcher) DroppedEvents() int64 {
	return w.dropped.Load()
}

// addWatches watches root and its subdirectories and calls onFile for
// every song file found.
func (w *Watcher) addWatches(root string, onFile func(path string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if w.watched(path) {
				onFile(path)
			}
			return nil
		}
		if path != root && w.skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory", "path", path, "error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}
		return nil
	})
}

func (w *Watcher) skipDir(name string) bool {
	return w.excludes[name] || strings.HasPrefix(name, ".")
}

func (w *Watcher) watched(path string) bool {
	return !strings.HasPrefix(filepath.Base(path), ".") && hasExtension(path, w.extensions)
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil {
		return path
	}
	return rel
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.skipDir(filepath.Base(path)) {
				if err := w.addWatches(path, w.markPending(fsnotify.Create)); err != nil {
					w.logger.Warn("Failed to watch new directory", "path", path, "error", err)
				}
			}
			return
		}
	}
	if !w.watched(path) || event.Op == fsnotify.Chmod {
		return
	}
	w.markPending(event.Op)(path)
	w.logger.Debug("Song change detected", "path", w.rel(path), "op", event.Op.String())
}

func (w *Watcher) markPending(op fsnotify.Op) func(path string) {
	return func(path string) {
		w.pendingMu.Lock()
		defer w.pendingMu.Unlock()
		w.pending[path] |= op
	}
}

func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	paths := make([]string, 0, len(toProcess))
	for path := range toProcess {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}
		if event, ok := w.classify(path); ok {
			w.sendEvent(event)
		}
	}
}

// classify turns a pending path into an event, or reports false when the
// content is unchanged.
func (w *Watcher) classify(path string) (Event, bool) {
	rel := w.rel(path)
	event := Event{Path: rel, AbsPath: path}

	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if _, known := w.hash(rel); !known {
			return event, false
		}
		w.deleteHash(rel)
		event.Op = OpDelete
		return event, true
	}
	if err != nil {
		w.logger.Warn("Failed to read changed file", "path", rel, "error", err)
		return event, false
	}

	newHash := contentHash(content)
	oldHash, known := w.hash(rel)
	if known && oldHash == newHash {
		return event, false
	}
	w.setHash(rel, newHash)

	event.Op = OpModify
	if !known {
		event.Op = OpCreate
	}
	return event, true
}

func (w *Watcher) sendEvent(event Event) {
	select {
	case w.events <- event:
		w.logger.Debug("Sent watch event", "path", event.Path, "op", event.Op)
	default:
		dropped := w.dropped.Add(1)
		w.logger.Warn("Event channel full, dropping event",
			"path", event.Path,
			"total_dropped", dropped)
	}
}

func (w *Watcher) setHash(path, hash string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	w.hashes[path] = hash
}

func (w *Watcher) hash(path string) (string, bool) {
	w.hashMu.RLock()
	defer w.hashMu.RUnlock()
	h, ok := w.hashes[path]
	return h, ok
}

func (w *Watcher) deleteHash(path string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	delete(w.hashes, path)
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
