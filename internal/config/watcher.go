package config

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 1500 * time.Millisecond

// Watcher reloads a configuration file when it changes and hands the typed
// result to every registered handler. The parent directory is watched so a
// save that renames a temp file over the original is still seen.
type Watcher[T any] struct {
	path     string
	loader   func(path string) (T, error)
	logger   *slog.Logger
	debounce time.Duration
	onError  func(error)
	equal    func(a, b T) bool

	mu       sync.Mutex
	handlers map[int]func(T)
	nextID   int
	last     T
	loaded   bool

	fsw  *fsnotify.Watcher
	stop chan struct{}
	done chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption[T any] func(*Watcher[T])

// WithDebounce sets how long the file must stay quiet before a reload.
func WithDebounce[T any](d time.Duration) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.debounce = d
	}
}

// WithErrorHandler is called when a reload fails. Errors are always logged.
func WithErrorHandler[T any](handler func(error)) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.onError = handler
	}
}

// WithEqual suppresses notifications when the reloaded value equals the
// previous one, e.g. when an unrelated section of the file was edited.
func WithEqual[T any](equal func(a, b T) bool) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.equal = equal
	}
}

// NewConfigWatcher creates a watcher for path. Nothing is watched until
// Start or Run.
func NewConfigWatcher[T any](
	path string,
	loader func(path string) (T, error),
	logger *slog.Logger,
	opts ...WatcherOption[T],
) *Watcher[T] {
	w := &Watcher[T]{
		path:     filepath.Clean(path),
		loader:   loader,
		logger:   logger,
		debounce: DefaultDebounce,
		handlers: make(map[int]func(T)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnReload registers handler and returns a func that removes it.
func (w *Watcher[T]) OnReload(handler func(T)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++
	w.handlers[id] = handler

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.handlers, id)
	}
}

// Start begins watching in the background. With WithEqual set, the current
// file content becomes the baseline for change detection.
func (w *Watcher[T]) Start() error {
	if w.fsw != nil {
		return errors.New("config watcher already started")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}

	if w.equal != nil {
		if cfg, err := w.loader(w.path); err == nil {
			w.mu.Lock()
			w.last, w.loaded = cfg, true
			w.mu.Unlock()
		}
	}

	w.fsw = fsw
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	go w.loop()

	w.logger.Info("Config watcher started", "path", w.path, "debounce", w.debounce)
	return nil
}

// Stop ends watching and waits for the background loop to exit.
func (w *Watcher[T]) Stop() error {
	if w.fsw == nil {
		return nil
	}
	close(w.stop)
	<-w.done
	err := w.fsw.Close()
	w.fsw = nil
	return err
}

// Run watches until ctx is cancelled.
func (w *Watcher[T]) Run(ctx context.Context) error {
	if err := w.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return w.Stop()
}

func (w *Watcher[T]) loop() {
	defer close(w.done)

	debounce := time.NewTimer(w.debounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-w.stop:
			w.logger.Debug("Config watcher stopped")
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			// Create covers saves that replace the file.
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug("Config file change detected", "op", ev.Op.String())
			debounce.Reset(w.debounce)

		case <-debounce.C:
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", "error", err)
		}
	}
}

func (w *Watcher[T]) reload() {
	cfg, err := w.loader(w.path)
	if err != nil {
		w.logger.Warn("Failed to reload config", "path", w.path, "error", err)
		if w.onError != nil {
			w.onError(err)
		}
		return
	}

	w.mu.Lock()
	if w.equal != nil && w.loaded && w.equal(w.last, cfg) {
		w.mu.Unlock()
		w.logger.Debug("Config file changed without affecting watched settings")
		return
	}
	w.last, w.loaded = cfg, true
	handlers := make([]func(T), 0, len(w.handlers))
	for id := range w.nextID {
		if h, ok := w.handlers[id]; ok {
			handlers = append(handlers, h)
		}
	}
	w.mu.Unlock()

	w.logger.Info("Config reloaded", "path", w.path, "handlers", len(handlers))
	for _, h := range handlers {
		h(cfg)
	}
}
