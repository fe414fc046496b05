package config

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FileWatcher polls file modification times and triggers a callback on change.
// The path set is re-read each scan so overlay files added later are noticed.
type FileWatcher struct {
	Paths     func() []string
	Interval  time.Duration
	onChange  func(string) // called with path that changed
	log       *zap.Logger
	stopCh    chan struct{}
	stopOnce  sync.Once
	lastMTime map[string]time.Time
}

// NewFileWatcher creates a watcher for given paths and interval.
func NewFileWatcher(paths func() []string, interval time.Duration, onChange func(string), log *zap.Logger) *FileWatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileWatcher{
		Paths:     paths,
		Interval:  interval,
		onChange:  onChange,
		log:       log,
		stopCh:    make(chan struct{}),
		lastMTime: make(map[string]time.Time),
	}
}

// Start begins polling in a goroutine.
func (w *FileWatcher) Start() {
	ticker := time.NewTicker(w.Interval)
	// prime cache before returning so edits right after Start are seen
	w.scanAll(true)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.scanAll(false)
			case <-w.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the watcher.
func (w *FileWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// scanAll checks mtimes and invokes onChange for files that changed since last scan.
func (w *FileWatcher) scanAll(prime bool) {
	current := make(map[string]bool)
	for _, p := range w.Paths() {
		current[p] = true
		fi, err := os.Stat(p)
		if err != nil {
			// if file missing, keep going; removal is handled below
			continue
		}
		mt := fi.ModTime()
		last, ok := w.lastMTime[p]
		w.lastMTime[p] = mt
		if prime {
			continue
		}
		if !ok || mt.After(last) {
			w.log.Info("config file changed", zap.String("path", p))
			w.notify(p)
		}
	}
	for p := range w.lastMTime {
		if _, err := os.Stat(p); err != nil || !current[p] {
			delete(w.lastMTime, p)
			if !prime {
				w.log.Info("config file removed", zap.String("path", p))
				w.notify(p)
			}
		}
	}
}

func (w *FileWatcher) notify(p string) {
	if w.onChange != nil {
		w.onChange(p)
	}
}
