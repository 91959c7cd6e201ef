package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yairfalse/vahti/internal/logger"
	"github.com/yairfalse/vahti/internal/monitor"
)

// DefaultDebounce is how long the watcher waits for writes to settle
const DefaultDebounce = 500 * time.Millisecond

// EventHandler checks one stored snapshot version
type EventHandler interface {
	HandleObjectEvent(ctx context.Context, ev monitor.ObjectEvent) (*monitor.Result, error)
}

// PathResolver maps a file below the store root to the version it holds
type PathResolver interface {
	Root() string
	ParsePath(path string) (bucket, key, versionID string, ok bool)
}

// Watcher turns new version files in a local snapshot store into drift
// checks, the same way an S3 ObjectCreated notification does for a bucket
type Watcher struct {
	store    PathResolver
	handler  EventHandler
	debounce time.Duration
	log      logger.Logger
	onResult func(*monitor.Result, error)

	mu      sync.Mutex
	pending map[string]monitor.ObjectEvent
	timer   *time.Timer
}

// WatcherConfig holds configuration for the watcher
type WatcherConfig struct {
	Store    PathResolver
	Handler  EventHandler
	Debounce time.Duration
	Logger   logger.Logger
	OnResult func(*monitor.Result, error)
}

// NewWatcher creates a new store watcher
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	if config.Store == nil || config.Handler == nil {
		return nil, fmt.Errorf("watcher requires a store and a handler")
	}
	if config.Debounce < 0 {
		return nil, fmt.Errorf("debounce must not be negative")
	}
	if config.Debounce == 0 {
		config.Debounce = DefaultDebounce
	}
	if config.Logger == nil {
		config.Logger = logger.NewNop()
	}

	return &Watcher{
		store:    config.Store,
		handler:  config.Handler,
		debounce: config.Debounce,
		log:      config.Logger,
		onResult: config.OnResult,
		pending:  make(map[string]monitor.ObjectEvent),
	}, nil
}

// Start watches the store until ctx is cancelled
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(ctx, fsw, w.store.Root(), false); err != nil {
		return err
	}
	w.log.WithField("root", w.store.Root()).Info("watching snapshot store")

	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.log.WithFields(map[string]interface{}{"name": ev.Name, "op": ev.Op.String()}).Debug("event")

			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Write) {
				continue
			}

			// New bucket or key directories must be watched too
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				if err := w.addTree(ctx, fsw, ev.Name, true); err != nil {
					w.log.Error("failed to watch directory", err)
				}
				continue
			}

			w.observe(ctx, ev.Name)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("fsnotify error", err)
		}
	}
}

// observe queues the version file at path and restarts the debounce timer
func (w *Watcher) observe(ctx context.Context, path string) {
	bucket, key, versionID, ok := w.store.ParsePath(path)
	if !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	id := bucket + "/" + key
	// Only the newest version per key is checked once writes settle
	if prev, exists := w.pending[id]; !exists || versionID > prev.VersionID {
		w.pending[id] = monitor.ObjectEvent{Bucket: bucket, Key: key, VersionID: versionID}
	}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("check panic", fmt.Errorf("%v", r))
			}
		}()
		w.Flush(ctx)
	})
}

// Flush checks every queued version now
func (w *Watcher) Flush(ctx context.Context) {
	w.mu.Lock()
	events := make([]monitor.ObjectEvent, 0, len(w.pending))
	for _, ev := range w.pending {
		events = append(events, ev)
	}
	w.pending = make(map[string]monitor.ObjectEvent)
	w.mu.Unlock()

	sort.Slice(events, func(i, j int) bool {
		if events[i].Bucket != events[j].Bucket {
			return events[i].Bucket < events[j].Bucket
		}
		return events[i].Key < events[j].Key
	})

	for _, ev := range events {
		if ctx.Err() != nil {
			return
		}
		result, err := w.handler.HandleObjectEvent(ctx, ev)
		if err != nil {
			w.log.WithFields(map[string]interface{}{"bucket": ev.Bucket, "key": ev.Key}).Error("drift check failed", err)
		}
		if w.onResult != nil {
			w.onResult(result, err)
		}
	}
}

// Pending returns the number of queued versions
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// addTree watches dir and every directory below it. With scan set, version
// files written before the watch was registered are queued as well.
func (w *Watcher) addTree(ctx context.Context, fsw *fsnotify.Watcher, dir string, scan bool) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if scan {
				w.observe(ctx, path)
			}
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
