// Package watcher provides debouncing primitives and file system watching
// for source trees opened from disk.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tsbridge/internal/slogutil"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

// Event represents a file system event
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// ChangeHandler is called with a debounced, deduplicated batch of events
type ChangeHandler func(events []Event)

// Config contains watcher configuration
type Config struct {
	DebounceMs     int      `json:"debounceMs" mapstructure:"debounceMs"`
	IgnorePatterns []string `json:"ignorePatterns" mapstructure:"ignorePatterns"`
	// Extensions limits events to files with these suffixes; empty means all.
	Extensions []string `json:"extensions" mapstructure:"extensions"`
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		DebounceMs: 200,
		IgnorePatterns: []string{
			"*.log",
			"*.tmp",
			"*.swp",
			".git",
			"node_modules",
			".tsbridge",
		},
		Extensions: []string{".ts", ".js", ".es6"},
	}
}

// Watcher watches a directory tree for source changes
type Watcher struct {
	config  Config
	logger  *slog.Logger
	handler ChangeHandler
	root    string

	fs    *fsnotify.Watcher
	batch *BatchDebouncer

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// New creates a watcher for root. Call Start to begin watching.
func New(root string, config Config, logger *slog.Logger, handler ChangeHandler) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		config:  config,
		logger:  slogutil.Component(logger, "watcher"),
		handler: handler,
		root:    root,
		fs:      fw,
		done:    make(chan struct{}),
	}
	w.batch = NewBatchDebouncer(time.Duration(config.DebounceMs)*time.Millisecond, w.emit)
	return w, nil
}

// Start adds the tree under root and processes events until ctx ends or
// Stop is called
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	w.logger.Info("Watching directory", "path", w.root, "debounceMs", w.config.DebounceMs)

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop stops watching and drops pending events
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
		w.batch.Cancel()
		w.logger.Debug("File watcher stopped")
	})
	return err
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.IsIgnored(path) {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if w.IsIgnored(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				w.logger.Debug("Could not watch new directory", "path", ev.Name, "error", err)
			}
			return
		}
	}
	if !w.matchesExtension(ev.Name) {
		return
	}
	w.batch.Add(Event{Type: convertOp(ev.Op), Path: ev.Name, Timestamp: time.Now()})
}

func convertOp(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreate
	case op.Has(fsnotify.Remove):
		return EventDelete
	case op.Has(fsnotify.Rename):
		return EventRename
	default:
		return EventModify
	}
}

// emit hands the handler one event per path, keeping the last type seen
func (w *Watcher) emit(events []Event) {
	if w.handler == nil {
		return
	}
	w.handler(Dedupe(events))
}

// Dedupe keeps the last event per path, in order of first appearance
func Dedupe(events []Event) []Event {
	index := make(map[string]int, len(events))
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		if i, ok := index[ev.Path]; ok {
			out[i] = ev
			continue
		}
		index[ev.Path] = len(out)
		out = append(out, ev)
	}
	return out
}

func (w *Watcher) matchesExtension(path string) bool {
	if len(w.config.Extensions) == 0 {
		return true
	}
	for _, ext := range w.config.Extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// IsIgnored checks if a path matches ignore patterns
func (w *Watcher) IsIgnored(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range w.config.IgnorePatterns {
		if base == pattern {
			return true
		}
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		// a pattern naming a directory ignores everything below it
		sep := string(filepath.Separator)
		if strings.Contains(path, sep+pattern+sep) {
			return true
		}
	}
	return false
}

// Root returns the watched directory
func (w *Watcher) Root() string { return w.root }
