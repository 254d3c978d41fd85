package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/alucardeht/crawl-worker/internal/logger"
)

var log = logger.ForComponent("watcher")

// Watcher observes a single config file and calls onChange after the file
// settles. The parent directory is watched rather than the file so editors
// that replace the file through a rename are still seen.
type Watcher struct {
	path      string
	dir       string
	pattern   string
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	onChange  func(path string)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(path string, debounce time.Duration, onChange func(path string)) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("watcher: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(abs)
	w := &Watcher{
		path:      abs,
		dir:       dir,
		pattern:   escapeMeta(filepath.ToSlash(abs)),
		fsWatcher: fsWatcher,
		onChange:  onChange,
	}
	w.debouncer = NewDebouncer(debounce, w.onFlush)
	return w, nil
}

func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}
	if err := w.fsWatcher.Add(w.dir); err != nil {
		return err
	}

	log.Info("watching config", "path", w.path)

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.running = true
	go w.handleEvents(ctx)
	return nil
}

func (w *Watcher) handleEvents(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.matches(event.Name) {
				continue
			}
			eventType, ok := classify(event.Op)
			if !ok {
				continue
			}
			log.Debug("config event", "path", event.Name, "op", event.Op.String())
			w.debouncer.Add(FileEvent{Path: event.Name, Type: eventType, Timestamp: time.Now()})

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) matches(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	match, _ := doublestar.Match(w.pattern, filepath.ToSlash(abs))
	return match
}

func escapeMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '*', '?', '[', ']', '{', '}':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (w *Watcher) onFlush(events []FileEvent) {
	for _, event := range events {
		if event.Type == EventRemove || event.Type == EventRename {
			log.Debug("config moved away, waiting for replacement", "path", event.Path)
			continue
		}
		if w.onChange != nil {
			w.onChange(w.path)
		}
		return
	}
}

func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.fsWatcher.Close()
	}
	w.running = false
	w.cancel()
	done := w.done
	w.mu.Unlock()

	w.debouncer.Stop()
	err := w.fsWatcher.Close()
	<-done
	return err
}
