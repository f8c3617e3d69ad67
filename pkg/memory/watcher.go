package memory

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/mtegner/mnemo/pkg/chunk"
)

// RootWatcher watches ingestion roots for file changes and reports, after a
// debounce, which root went dirty so the caller can re-ingest it.
type RootWatcher struct {
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
	onDirty  func(root string)
	debounce time.Duration
	roots    []string
	mu       sync.Mutex
	timers   map[string]*time.Timer
	stopped  bool
	stopCh   chan struct{}
}

// NewRootWatcher creates a watcher over the given roots. onDirty runs on a
// timer goroutine and must be safe to call concurrently.
func NewRootWatcher(roots []string, logger zerolog.Logger, onDirty func(root string)) (*RootWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	rw := &RootWatcher{
		watcher:  watcher,
		logger:   logger,
		onDirty:  onDirty,
		debounce: 2 * time.Second,
		roots:    roots,
		timers:   make(map[string]*time.Timer),
		stopCh:   make(chan struct{}),
	}

	for _, root := range roots {
		if err := watcher.Add(root); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	go rw.run()
	return rw, nil
}

// Stop stops the watcher and cancels pending debounce timers; no onDirty
// call starts after Stop returns.
func (rw *RootWatcher) Stop() error {
	rw.mu.Lock()
	rw.stopped = true
	for _, t := range rw.timers {
		t.Stop()
	}
	rw.timers = map[string]*time.Timer{}
	rw.mu.Unlock()

	close(rw.stopCh)
	return rw.watcher.Close()
}

func (rw *RootWatcher) run() {
	for {
		select {
		case event, ok := <-rw.watcher.Events:
			if !ok {
				return
			}

			name := filepath.Base(event.Name)
			if chunk.Skippable(name) || !chunk.Allowed(name) {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
				rw.logger.Debug().
					Str("file", name).
					Str("op", event.Op.String()).
					Msg("Watched file changed")
				rw.scheduleDirty(rw.rootOf(event.Name))
			}

		case err, ok := <-rw.watcher.Errors:
			if !ok {
				return
			}
			rw.logger.Error().Err(err).Msg("Root watcher error")

		case <-rw.stopCh:
			return
		}
	}
}

// rootOf maps an event path back to the configured root containing it.
func (rw *RootWatcher) rootOf(path string) string {
	for _, root := range rw.roots {
		if rel, err := filepath.Rel(root, path); err == nil && !filepath.IsAbs(rel) && rel != ".." && !hasDotDotPrefix(rel) {
			return root
		}
	}
	return filepath.Dir(path)
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}

func (rw *RootWatcher) scheduleDirty(root string) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.stopped {
		return
	}
	if t := rw.timers[root]; t != nil {
		t.Stop()
	}
	rw.timers[root] = time.AfterFunc(rw.debounce, func() {
		rw.mu.Lock()
		stopped := rw.stopped
		rw.mu.Unlock()
		if stopped {
			return
		}
		rw.logger.Debug().Str("root", root).Msg("Re-ingesting dirty root")
		rw.onDirty(root)
	})
}
