package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FileWatcher polls a set of files for modification-time changes and
// dispatches debounced callbacks. Used to hot-reload provider_keys.json,
// oauth_tokens.json, and disabled_hooks.json when they are edited outside
// the gateway process (e.g. by a companion CLI), per SPEC_FULL.md's
// "Hot reload" ambient concern.
type FileWatcher struct {
	mu sync.RWMutex

	paths         []string
	debounceDelay time.Duration

	running  bool
	stopChan chan struct{}

	callbacks []func(path string)

	logger *zap.Logger

	lastModTimes map[string]time.Time
}

// NewFileWatcher creates a FileWatcher over the given paths. Missing files
// are watched for creation rather than treated as an error.
func NewFileWatcher(paths []string, logger *zap.Logger) *FileWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileWatcher{
		paths:         paths,
		debounceDelay: 200 * time.Millisecond,
		stopChan:      make(chan struct{}),
		lastModTimes:  make(map[string]time.Time),
		logger:        logger.With(zap.String("component", "config_watcher")),
	}
}

// OnChange registers a callback fired (debounced) after a watched path's
// mtime advances.
func (w *FileWatcher) OnChange(cb func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Start begins polling in the background until ctx is cancelled or Stop is called.
func (w *FileWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	for _, p := range w.paths {
		if info, err := os.Stat(p); err == nil {
			w.lastModTimes[p] = info.ModTime()
		}
	}
	w.mu.Unlock()

	go w.pollLoop(ctx)
	return nil
}

// Stop halts polling.
func (w *FileWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.stopChan)
	w.running = false
}

func (w *FileWatcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var debounce *time.Timer
	changed := make(map[string]struct{})

	flush := func() {
		w.mu.RLock()
		cbs := make([]func(string), len(w.callbacks))
		copy(cbs, w.callbacks)
		w.mu.RUnlock()

		for p := range changed {
			for _, cb := range cbs {
				cb(p)
			}
		}
		changed = make(map[string]struct{})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			for _, p := range w.checkFiles() {
				changed[p] = struct{}{}
			}
			if len(changed) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(w.debounceDelay, flush)
		}
	}
}

func (w *FileWatcher) checkFiles() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var changed []string
	for _, p := range w.paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		last, existed := w.lastModTimes[p]
		if !existed || info.ModTime().After(last) {
			w.lastModTimes[p] = info.ModTime()
			changed = append(changed, p)
		}
	}
	return changed
}
