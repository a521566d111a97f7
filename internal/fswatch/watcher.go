// Package fswatch watches a project's media directory on disk so a file
// removed out-of-band (the user deleting it in their file manager) is
// reconciled into the affected MediaItem's "missing" status rather than
// only being discovered the next time the project loads.
package fswatch

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// OnMediaRemoved is called (debounced) when a file under the watched
// media directory disappears.
type OnMediaRemoved func(path string)

// OnMediaRestored is called when a previously-missing path reappears,
// e.g. the user moved it back or a sync client finished downloading it.
type OnMediaRestored func(path string)

type Watcher struct {
	fw        *fsnotify.Watcher
	log       zerolog.Logger
	onRemoved OnMediaRemoved
	onCreated OnMediaRestored

	mu       sync.Mutex
	debounce map[string]*time.Timer
	stop     chan struct{}
	done     chan struct{}
}

func New(mediaDir string, onRemoved OnMediaRemoved, onCreated OnMediaRestored, log zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(mediaDir); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		fw:        fw,
		log:       log,
		onRemoved: onRemoved,
		onCreated: onCreated,
		debounce:  make(map[string]*time.Timer),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}, nil
}

func (w *Watcher) Start() {
	go w.eventLoop()
}

// Stop closes the underlying fsnotify watcher and blocks until the event
// loop goroutine has actually exited.
func (w *Watcher) Stop() {
	close(w.stop)
	w.fw.Close()
	<-w.done

	w.mu.Lock()
	for _, t := range w.debounce {
		t.Stop()
	}
	w.mu.Unlock()
}

func (w *Watcher) eventLoop() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("fswatch: watcher error")
		}
	}
}

// handle debounces per-path so a rapid remove+recreate (common with
// editors that save via a temp-file swap) doesn't flicker missing/ready.
const debounceWindow = 500 * time.Millisecond

func (w *Watcher) handle(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)

	w.mu.Lock()
	if t, ok := w.debounce[path]; ok {
		t.Stop()
	}

	var fire func()
	switch {
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		fire = func() { w.onRemoved(path) }
	case ev.Op&fsnotify.Create != 0:
		fire = func() {
			if w.onCreated != nil {
				w.onCreated(path)
			}
		}
	default:
		w.mu.Unlock()
		return
	}

	w.debounce[path] = time.AfterFunc(debounceWindow, fire)
	w.mu.Unlock()
}
