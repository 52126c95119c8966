// Package watch notifies a running session about changes to project
// stylesheets and to the project configuration file.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/stylefire/internal/config"
	"github.com/standardbeagle/stylefire/internal/debug"
)

// DefaultExtensions are the file extensions reported as source changes
var DefaultExtensions = []string{".css", ".less", ".scss", ".sass"}

// EventType is the kind of file system change
type EventType int

const (
	EventCreate EventType = iota
	EventWrite
	EventRemove
	EventRename
)

func (t EventType) String() string {
	switch t {
	case EventCreate:
		return "create"
	case EventWrite:
		return "write"
	case EventRemove:
		return "remove"
	case EventRename:
		return "rename"
	}
	return "unknown"
}

// Change is one debounced file change
type Change struct {
	Path string
	Type EventType
}

// Watcher monitors the project root. Stylesheet changes are delivered in
// debounced batches; a change to the config file reloads it.
type Watcher struct {
	watcher    *fsnotify.Watcher
	root       string
	exclude    []string
	extensions []string
	debouncer  *eventDebouncer
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	mu              sync.Mutex
	onSourceChanged func(changes []Change)
	onConfigChanged func(cfg *config.Config, err error)

	statsMu         sync.RWMutex
	batches         int64
	eventsProcessed int64
	configReloads   int64
	errorCount      int64
	lastEventTime   time.Time
}

// New creates a watcher for cfg's project root
func New(cfg *config.Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounce := time.Duration(cfg.Watch.DebounceMs) * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher:    fsw,
		root:       cfg.Project.Root,
		exclude:    slices.Clone(cfg.Exclude),
		extensions: DefaultExtensions,
		ctx:        ctx,
		cancel:     cancel,
	}
	w.debouncer = newEventDebouncer(debounce, w.flush)
	return w, nil
}

// SetCallbacks sets the change handlers. Either may be nil.
func (w *Watcher) SetCallbacks(onSourceChanged func(changes []Change), onConfigChanged func(cfg *config.Config, err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onSourceChanged = onSourceChanged
	w.onConfigChanged = onConfigChanged
}

// SetExtensions replaces the extensions reported as source changes
func (w *Watcher) SetExtensions(exts ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.extensions = exts
}

// Start adds watches below the root and begins delivering events
func (w *Watcher) Start() error {
	debug.LogWatch("starting watcher for %s\n", w.root)

	if err := w.addWatches(w.root); err != nil {
		return fmt.Errorf("failed to add watches starting from %s: %w", w.root, err)
	}

	w.wg.Add(1)
	go w.processEvents()

	log.Printf("Watching %s for stylesheet changes", w.root)
	return nil
}

// Stop stops the watcher. Pending debounced events are dropped.
func (w *Watcher) Stop() error {
	w.cancel()
	w.debouncer.stop()

	err := w.watcher.Close()
	if err != nil {
		log.Printf("Error closing fsnotify watcher: %v", err)
	}
	w.wg.Wait()

	log.Printf("Watcher stopped")
	return err
}

// addWatches recursively adds watches to every directory not excluded
func (w *Watcher) addWatches(root string) error {
	visited := make(map[string]bool)

	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		// Symlink cycles
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[realPath] {
			return filepath.SkipDir
		}
		visited[realPath] = true

		if path != root && w.isExcluded(path, true) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to add watch for %s: %v", path, err)
		}
		return nil
	})
}

// isExcluded matches the root-relative path against the exclude patterns.
// Directories are also tested with a trailing separator so "**/dist/**"
// excludes dist itself.
func (w *Watcher) isExcluded(path string, isDir bool) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if isDir {
			if ok, _ := doublestar.Match(pattern, rel+"/x"); ok {
				return true
			}
		}
	}
	return false
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.incrementStats(0, 1)
			log.Printf("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	debug.LogWatch("received %v for %s\n", event.Op, path)

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		if event.Op&fsnotify.Create != 0 && !w.isExcluded(path, true) {
			if err := w.addWatches(path); err != nil {
				log.Printf("Warning: failed to add watch for new directory %s: %v", path, err)
			}
		}
		return
	}

	if !w.isConfigFile(path) && !w.isSource(path) {
		return
	}

	var eventType EventType
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = EventCreate
	case event.Op&fsnotify.Write != 0:
		eventType = EventWrite
	case event.Op&fsnotify.Remove != 0:
		eventType = EventRemove
	case event.Op&fsnotify.Rename != 0:
		eventType = EventRename
	default:
		return
	}
	w.debouncer.addEvent(path, eventType)
}

func (w *Watcher) isConfigFile(path string) bool {
	return filepath.Dir(path) == filepath.Clean(w.root) && filepath.Base(path) == config.ConfigFileName
}

func (w *Watcher) isSource(path string) bool {
	if w.isExcluded(path, false) {
		return false
	}
	w.mu.Lock()
	exts := w.extensions
	w.mu.Unlock()
	ext := strings.ToLower(filepath.Ext(path))
	return slices.Contains(exts, ext)
}

// flush delivers one debounced batch: the config reload first, then the
// source changes sorted by path
func (w *Watcher) flush(events map[string]EventType) {
	w.mu.Lock()
	onSource, onConfig := w.onSourceChanged, w.onConfigChanged
	w.mu.Unlock()

	var changes []Change
	configChanged := false
	for path, t := range events {
		if w.isConfigFile(path) {
			configChanged = true
			continue
		}
		changes = append(changes, Change{Path: path, Type: t})
	}
	slices.SortFunc(changes, func(a, b Change) int { return strings.Compare(a.Path, b.Path) })

	if configChanged {
		cfg, err := config.Load(w.root)
		if err != nil {
			w.incrementStats(0, 1)
		}
		w.statsMu.Lock()
		w.configReloads++
		w.statsMu.Unlock()
		debug.LogWatch("config reloaded (err=%v)\n", err)
		if onConfig != nil {
			onConfig(cfg, err)
		}
	}

	if len(changes) > 0 {
		debug.LogWatch("delivering %d source changes\n", len(changes))
		if onSource != nil {
			onSource(changes)
		}
	}

	w.statsMu.Lock()
	w.batches++
	w.statsMu.Unlock()
	w.incrementStats(int64(len(events)), 0)
}

func (w *Watcher) incrementStats(events, errors int64) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.eventsProcessed += events
	w.errorCount += errors
	if events > 0 {
		w.lastEventTime = time.Now()
	}
}

// Stats contains statistics about watching
type Stats struct {
	Batches         int64
	EventsProcessed int64
	ConfigReloads   int64
	ErrorCount      int64
	LastEventTime   time.Time
	IsActive        bool
}

// Stats returns current watch statistics
func (w *Watcher) Stats() Stats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	return Stats{
		Batches:         w.batches,
		EventsProcessed: w.eventsProcessed,
		ConfigReloads:   w.configReloads,
		ErrorCount:      w.errorCount,
		LastEventTime:   w.lastEventTime,
		IsActive:        w.ctx.Err() == nil,
	}
}

// eventDebouncer batches events per path; the latest event for a path wins
type eventDebouncer struct {
	mu       sync.Mutex
	events   map[string]EventType
	debounce time.Duration
	timer    *time.Timer
	stopped  bool
	onFlush  func(map[string]EventType)
	inFlight sync.WaitGroup
}

func newEventDebouncer(debounce time.Duration, onFlush func(map[string]EventType)) *eventDebouncer {
	return &eventDebouncer{
		events:   make(map[string]EventType),
		debounce: debounce,
		onFlush:  onFlush,
	}
}

func (d *eventDebouncer) addEvent(path string, eventType EventType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.events[path] = eventType
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.debounce, d.flush)
}

func (d *eventDebouncer) flush() {
	d.mu.Lock()
	if d.stopped || len(d.events) == 0 {
		d.mu.Unlock()
		return
	}
	events := d.events
	d.events = make(map[string]EventType)
	d.inFlight.Add(1)
	d.mu.Unlock()

	defer d.inFlight.Done()
	d.onFlush(events)
}

// stop cancels the pending timer and waits for a running flush
func (d *eventDebouncer) stop() {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.inFlight.Wait()
}
