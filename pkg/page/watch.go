package page

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event reports a page that was loaded, reloaded, failed to parse or was
// removed.
type Event struct {
	// Path is the page file.
	Path string

	// Page is nil when Err is set or the file was removed.
	Page *Page

	Err     error
	Removed bool
}

// Name returns the page name derived from Path.
func (e Event) Name() string {
	return strings.TrimSuffix(filepath.Base(e.Path), filepath.Ext(e.Path))
}

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	// Dir is the directory holding the pages. Subdirectories are not watched.
	Dir string

	// Debounce is the quiet period after the last change to a file before
	// it is reloaded. Default: 100ms.
	Debounce time.Duration

	Logger *slog.Logger
}

// Watcher reloads pages when their files change.
type Watcher struct {
	config WatcherConfig
	fsw    *fsnotify.Watcher
	logger *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool

	// emitMu serializes callbacks
	emitMu sync.Mutex
}

// NewWatcher starts watching config.Dir.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	if config.Debounce <= 0 {
		config.Debounce = 100 * time.Millisecond
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default().With("component", "page")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(config.Dir); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		config: config,
		fsw:    fsw,
		logger: logger.With("dir", config.Dir),
		timers: make(map[string]*time.Timer),
	}, nil
}

// LoadDir parses every page in dir, ordered by file name. Pages that fail to
// parse are reported as events with Err set.
func LoadDir(dir string) ([]Event, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var events []Event
	for _, e := range entries {
		if e.IsDir() || !isPage(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		p, err := ParseFile(path)
		events = append(events, Event{Path: path, Page: p, Err: err})
	}
	slices.SortFunc(events, func(a, b Event) int { return strings.Compare(a.Path, b.Path) })
	return events, nil
}

func isPage(name string) bool {
	return strings.EqualFold(filepath.Ext(name), Ext) && !strings.HasPrefix(name, ".")
}

// Run loads every page once, then calls fn for each change until ctx is
// done. Calls to fn never overlap.
func (w *Watcher) Run(ctx context.Context, fn func(Event)) error {
	defer w.close()

	initial, err := LoadDir(w.config.Dir)
	if err != nil {
		return err
	}
	for _, e := range initial {
		w.emit(fn, e)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !isPage(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.debounce(event.Name, fn)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) debounce(path string, fn func(Event)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.config.Debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		closed := w.closed
		w.mu.Unlock()

		if !closed {
			w.emit(fn, w.load(path))
		}
	})
}

func (w *Watcher) load(path string) Event {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		w.logger.Info("page removed", "path", path)
		return Event{Path: path, Removed: true}
	}

	p, err := ParseFile(path)
	if err != nil {
		w.logger.Warn("page failed to load", "path", path, "error", err)
		return Event{Path: path, Err: err}
	}
	w.logger.Info("page reloaded", "path", path)
	return Event{Path: path, Page: p}
}

// emit calls fn unless the watcher has closed. close waits for an emit in
// progress, so fn never runs after Run returns.
func (w *Watcher) emit(fn func(Event), e Event) {
	w.emitMu.Lock()
	defer w.emitMu.Unlock()

	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		w.logger.Debug("dropping event after close", "path", e.Path)
		return
	}
	fn(e)
}

func (w *Watcher) close() {
	w.mu.Lock()
	w.closed = true
	for _, t := range w.timers {
		t.Stop()
	}
	clear(w.timers)
	w.mu.Unlock()

	w.emitMu.Lock()
	w.emitMu.Unlock()

	w.fsw.Close()
}
