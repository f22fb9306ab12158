// Package watcher reports changes to a single file on disk.
//
// The parent directory is watched rather than the file itself, so the
// watcher survives editors that save by writing a temporary file and
// renaming it over the original. Rapid changes are coalesced into one
// event per debounce window.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed = errors.New("watcher is closed")
	ErrPathNotExist  = errors.New("path does not exist")
	ErrIsDirectory   = errors.New("path is a directory")
)

// DefaultDelay is the debounce window used when none is given.
const DefaultDelay = 100 * time.Millisecond

// Op represents the type of file system operation.
type Op uint32

const (
	// OpCreate indicates the file was created.
	OpCreate Op = 1 << iota
	// OpWrite indicates the file was written to.
	OpWrite
	// OpRemove indicates the file was removed.
	OpRemove
	// OpRename indicates the file was renamed away.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpWrite:
		return "WRITE"
	case OpRemove:
		return "REMOVE"
	case OpRename:
		return "RENAME"
	}
	if op == 0 {
		return "NONE"
	}
	return "MULTIPLE"
}

// Has returns true if the operation includes the given op.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Event is a coalesced change of the watched file.
type Event struct {
	Path      string
	Op        Op
	Timestamp time.Time
}

// Option configures a FileWatcher.
type Option func(*FileWatcher)

// WithDelay sets the debounce window.
func WithDelay(d time.Duration) Option {
	return func(w *FileWatcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// FileWatcher watches one file.
type FileWatcher struct {
	path  string
	delay time.Duration
	fsw   *fsnotify.Watcher

	mu      sync.Mutex
	pending *Event
	timer   *time.Timer
	closed  bool

	events  chan Event
	errors  chan error
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// New starts watching path, which must be an existing regular file.
func New(path string, opts ...Option) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPathNotExist
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrIsDirectory
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &FileWatcher{
		path:    abs,
		delay:   DefaultDelay,
		fsw:     fsw,
		events:  make(chan Event, 16),
		errors:  make(chan error, 16),
		closeCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.processLoop()
	return w, nil
}

// Path returns the absolute path of the watched file.
func (w *FileWatcher) Path() string { return w.path }

// Events returns the debounced event channel. It is closed by Close.
func (w *FileWatcher) Events() <-chan Event { return w.events }

// Errors returns the error channel. It is closed by Close.
func (w *FileWatcher) Errors() <-chan error { return w.errors }

// Close stops the watcher. Pending events are dropped.
func (w *FileWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = nil
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	close(w.events)
	close(w.errors)
	return err
}

// Run calls fn for every event until ctx is done, then closes w.
func (w *FileWatcher) Run(ctx context.Context, fn func(Event)) error {
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.events:
			if !ok {
				return ErrWatcherClosed
			}
			fn(ev)
		}
	}
}

func (w *FileWatcher) processLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.closeCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if op := convertOp(ev.Op); op != 0 && filepath.Clean(ev.Name) == w.path {
				w.schedule(op)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

// schedule merges op into the pending event and restarts the window.
func (w *FileWatcher) schedule(op Op) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if w.pending != nil {
		w.pending.Op |= op
		w.pending.Timestamp = time.Now()
		w.timer.Reset(w.delay)
		return
	}
	w.pending = &Event{Path: w.path, Op: op, Timestamp: time.Now()}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.delay, w.fire)
	} else {
		w.timer.Reset(w.delay)
	}
}

func (w *FileWatcher) fire() {
	w.mu.Lock()
	if w.closed || w.pending == nil {
		w.mu.Unlock()
		return
	}
	ev := *w.pending
	w.pending = nil
	w.wg.Add(1)
	w.mu.Unlock()

	defer w.wg.Done()
	select {
	case w.events <- ev:
	case <-w.closeCh:
	}
}

func convertOp(op fsnotify.Op) Op {
	var result Op
	if op.Has(fsnotify.Create) {
		result |= OpCreate
	}
	if op.Has(fsnotify.Write) {
		result |= OpWrite
	}
	if op.Has(fsnotify.Remove) {
		result |= OpRemove
	}
	if op.Has(fsnotify.Rename) {
		result |= OpRename
	}
	return result
}
