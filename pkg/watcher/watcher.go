// Package watcher reports changes to a fixed set of input files. It watches
// the parent directories through fsnotify, which survives editors that save
// by rename, and falls back to stat polling when fsnotify is unavailable.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is the default polling interval for fallback mode.
const DefaultPollInterval = 2 * time.Second

// Common errors.
var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
	ErrNoFiles        = errors.New("no files to watch")
)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDuration sets the debounce duration.
func WithDebounceDuration(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDuration = d
	}
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.pollInterval = d
	}
}

// WithOnChange sets the callback invoked once per debounced burst with the
// sorted paths that changed during it.
func WithOnChange(fn func(changed []string)) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// WithOnError sets the callback invoked on errors.
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) WatcherOption {
	return func(w *Watcher) {
		w.forcePoll = force
	}
}

type fileState struct {
	mtime time.Time
	size  int64
}

// Watcher monitors a set of files for changes.
type Watcher struct {
	paths            []string
	debounceDuration time.Duration
	pollInterval     time.Duration
	onChange         func([]string)
	onError          func(error)
	forcePoll        bool

	fsWatcher   *fsnotify.Watcher
	debouncer   *Debouncer
	useFallback bool
	state       map[string]fileState

	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
	pending  map[string]bool
	changeCh chan struct{}
}

// NewWatcher creates a watcher for the given paths. Duplicates are ignored.
func NewWatcher(paths []string, opts ...WatcherOption) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	var abs []string
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(abs, a) {
			abs = append(abs, a)
		}
	}

	w := &Watcher{
		paths:            abs,
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		onChange:         func([]string) {},
		onError:          func(error) {},
		state:            make(map[string]fileState, len(abs)),
		pending:          make(map[string]bool),
		changeCh:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debouncer = NewDebouncer(w.debounceDuration)
	return w, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}
	w.ctx, w.cancel = context.WithCancel(context.Background())

	for _, p := range w.paths {
		info, err := os.Stat(p)
		switch {
		case err == nil:
			w.state[p] = fileState{mtime: info.ModTime(), size: info.Size()}
		case os.IsPermission(err):
			w.cancel()
			return fmt.Errorf("%w: %s", ErrPermission, p)
		default:
			// May not exist yet; a later create counts as a change.
			w.state[p] = fileState{}
		}
	}

	forcePoll := w.forcePoll || envBool("CSVGRAPH_FORCE_POLL")
	w.useFallback = forcePoll
	if !forcePoll {
		if err := w.startFsnotify(); err != nil {
			w.useFallback = true
		}
	}
	if w.useFallback {
		go w.watchPolling(w.ctx)
	}

	w.started = true
	return nil
}

// startFsnotify watches every distinct parent directory. Caller holds mu.
func (w *Watcher) startFsnotify() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	var dirs []string
	for _, p := range w.paths {
		if d := filepath.Dir(p); !slices.Contains(dirs, d) {
			dirs = append(dirs, d)
		}
	}
	for _, d := range dirs {
		if err := fsw.Add(d); err != nil {
			fsw.Close()
			return err
		}
	}
	w.fsWatcher = fsw
	go w.watchFsnotify(w.ctx, fsw.Events, fsw.Errors)
	return nil
}

// Stop stops watching. The change channel stays open so a goroutine blocked
// on Changed is not woken by a close.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	if w.cancel != nil {
		w.cancel()
	}
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}
	w.debouncer.Cancel()
	w.started = false
}

// IsPolling returns true if the watcher is using polling mode.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.useFallback
}

// IsStarted returns true if the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// Changed returns a channel that receives after each debounced burst.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changeCh
}

// Paths returns the absolute watched paths.
func (w *Watcher) Paths() []string {
	return slices.Clone(w.paths)
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func (w *Watcher) watched(name string) (string, bool) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", false
	}
	return abs, slices.Contains(w.paths, abs)
}

func (w *Watcher) watchFsnotify(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			path, ok := w.watched(event.Name)
			if !ok {
				continue
			}
			switch {
			case event.Op&fsnotify.Remove != 0:
				w.onError(fmt.Errorf("%w: %s", ErrFileRemoved, path))
			case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0:
				w.markChanged(path)
			}

		case err, ok := <-errs:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

func (w *Watcher) watchPolling(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, p := range w.paths {
				w.poll(p)
			}
		}
	}
}

func (w *Watcher) poll(path string) {
	info, err := os.Stat(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			w.mu.Lock()
			hadFile := !w.state[path].mtime.IsZero()
			w.state[path] = fileState{}
			w.mu.Unlock()
			if hadFile {
				w.onError(fmt.Errorf("%w: %s", ErrFileRemoved, path))
			}
		case os.IsPermission(err):
			w.onError(fmt.Errorf("%w: %s", ErrPermission, path))
		default:
			w.onError(err)
		}
		return
	}

	w.mu.Lock()
	prev := w.state[path]
	changed := info.ModTime().After(prev.mtime) || info.Size() != prev.size
	if changed {
		w.state[path] = fileState{mtime: info.ModTime(), size: info.Size()}
	}
	w.mu.Unlock()

	if changed {
		w.markChanged(path)
	}
}

// markChanged records path and (re)arms the debouncer.
func (w *Watcher) markChanged(path string) {
	w.mu.Lock()
	w.pending[path] = true
	w.mu.Unlock()
	w.debouncer.Trigger(w.notifyChange)
}

func (w *Watcher) notifyChange() {
	w.mu.Lock()
	started := w.started
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	clear(w.pending)
	w.mu.Unlock()

	if !started || len(changed) == 0 {
		return
	}
	slices.Sort(changed)
	w.onChange(changed)

	select {
	case w.changeCh <- struct{}{}:
	default:
	}
}
