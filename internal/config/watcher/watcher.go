// Package watcher reloads the configuration file when it changes on disk.
//
// File events are debounced, the file is reloaded off the control thread and
// the result is handed to the control thread through a dispatch loop.
package watcher

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/dshills/tracewright/internal/config"
	"github.com/dshills/tracewright/internal/dispatch"
)

// ErrWatcherClosed is returned when using a closed watcher.
var ErrWatcherClosed = errors.New("watcher is closed")

// DefaultDebounce is the quiet period before a reload.
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches a single configuration file.
type Watcher struct {
	fsw      *fsnotify.Watcher
	path     string
	loop     *dispatch.Loop
	apply    func(*config.Config)
	onError  func(error)
	debounce time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger.With().Str("component", "config-watcher").Logger()
	}
}

// OnError sets a control-thread callback for reload failures. Without one
// failures are logged and the previous configuration stays in effect.
func OnError(fn func(error)) Option {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// New watches path and calls apply on the loop's control thread with every
// successfully reloaded configuration.
//
// The parent directory is watched so editors that replace the file by
// rename are handled.
func New(path string, loop *dispatch.Loop, apply func(*config.Config), opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		path:     abs,
		loop:     loop,
		apply:    apply,
		debounce: DefaultDebounce,
		logger:   zerolog.Nop(),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.processLoop()
	return w, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.path
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.closeCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("file watch error")
		}
	}
}

// schedule restarts the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := config.Load(w.path)
	w.loop.Schedule(func() {
		w.mu.Lock()
		closed := w.closed
		w.mu.Unlock()
		if closed {
			return
		}
		if err != nil {
			w.logger.Warn().Err(err).Str("path", w.path).Msg("config reload failed")
			if w.onError != nil {
				w.onError(err)
			}
			return
		}
		w.logger.Info().Str("path", w.path).Msg("config reloaded")
		w.apply(cfg)
	})
}

// Close stops watching. Reloads already handed to the loop are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.closeCh)
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}
