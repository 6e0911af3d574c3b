package sheetfile

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ryanbastic/go-shticell/internal/sheet"
)

const debounce = 100 * time.Millisecond

// Change is one settled edit of the watched file. Err is set when the file
// vanished or no longer parses.
type Change struct {
	File string
	Def  sheet.Definition
	Err  error
}

// Watcher reports edits of one sheet file. Editors often replace files
// instead of writing them in place, so the parent directory is watched and
// events are filtered by name.
type Watcher struct {
	File    string
	Changes <-chan Change

	changes chan Change
	done    chan struct{}
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for file. Call Start to begin.
func NewWatcher(file string) (*Watcher, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ch := make(chan Change, 4)
	return &Watcher{
		File:    abs,
		Changes: ch,
		changes: ch,
		done:    make(chan struct{}),
		watcher: fw,
	}, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.File)); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and the Changes channel.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	var pending time.Time
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				if !pending.IsZero() {
					w.emit()
				}
				return
			}
			if filepath.Clean(event.Name) != w.File {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending = time.Now()
			}

		case <-ticker.C:
			if !pending.IsZero() && time.Since(pending) >= debounce {
				pending = time.Time{}
				w.emit()
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) emit() {
	def, err := Load(w.File)
	w.changes <- Change{File: w.File, Def: def, Err: err}
}
