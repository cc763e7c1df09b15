package workspace

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes the persisted workspace document for mutations made by
// other processes sharing the session. The document is replaced by rename on
// every save, so the watch is on the session directory and filtered to the
// document name.
type Watcher struct {
	fsw        *fsnotify.Watcher
	sessionDir string

	mu       sync.Mutex
	onChange func()
	started  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewWatcher creates a Watcher for the given session directory.
func NewWatcher(sessionDir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:        fsw,
		sessionDir: sessionDir,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}, nil
}

// SetChangeCallback sets the function invoked whenever the document changes.
// Must be called before Start.
func (w *Watcher) SetChangeCallback(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start begins watching. Idempotent once started.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return nil
	}
	if err := w.fsw.Add(w.sessionDir); err != nil {
		return err
	}
	w.started = true

	go w.loop()
	return nil
}

// loop dispatches filtered filesystem events until Stop.
func (w *Watcher) loop() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != documentFile {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			fn := w.onChange
			w.mu.Unlock()
			if fn != nil {
				fn()
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Watch errors are transient; keep watching.
		}
	}
}

// Stop ends the watch and releases the underlying watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return w.fsw.Close()
	}
	close(w.stopCh)
	err := w.fsw.Close()
	<-w.doneCh
	w.started = false
	return err
}
