// Package watcher provides the two device event sources the daemon consumes:
// a directory watch on /dev for hidraw node creation and removal, and a
// node-level inotify watch for open/close events on individual hidraw nodes.
package watcher

import (
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/wof8317/ds-inhibit-clone/internal/hidraw"
)

// DevOp is the kind of device directory event.
type DevOp int

const (
	// DevAdded means a hidraw node appeared in the device directory.
	DevAdded DevOp = iota
	// DevRemoved means a hidraw node disappeared from the device directory.
	DevRemoved
)

// DevEvent is a hidraw node appearing in or disappearing from /dev.
type DevEvent struct {
	// Path is the full device node path.
	Path string
	// ID is the hidraw id parsed from the node name.
	ID int
	// Op is the event kind.
	Op DevOp
}

// DevWatcher watches a device directory for hidraw node churn.
type DevWatcher struct {
	watcher *fsnotify.Watcher
	events  chan DevEvent
	errors  chan error
	quit    chan struct{}
	done    chan struct{}
}

// NewDevWatcher starts watching the given device directory. Only events for
// names matching hidraw<N> are forwarded.
func NewDevWatcher(devDir string) (*DevWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := fsw.Add(devDir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", devDir, err)
	}

	w := &DevWatcher{
		watcher: fsw,
		events:  make(chan DevEvent, 16),
		errors:  make(chan error, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Events returns the channel of hidraw node events.
func (w *DevWatcher) Events() <-chan DevEvent {
	return w.events
}

// Errors returns the channel of watcher errors.
func (w *DevWatcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher and closes the event channel.
func (w *DevWatcher) Close() error {
	close(w.quit)
	err := w.watcher.Close()
	<-w.done
	return err
}

// send delivers an event unless the watcher is shutting down.
func (w *DevWatcher) send(ev DevEvent) bool {
	select {
	case w.events <- ev:
		return true
	case <-w.quit:
		return false
	}
}

func (w *DevWatcher) loop() {
	defer close(w.done)
	defer close(w.events)

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			id, isHidraw := hidraw.ParseNodePath(ev.Name)
			if !isHidraw {
				continue
			}

			delivered := true
			switch {
			case ev.Has(fsnotify.Create):
				delivered = w.send(DevEvent{Path: ev.Name, ID: id, Op: DevAdded})
			case ev.Has(fsnotify.Remove):
				delivered = w.send(DevEvent{Path: ev.Name, ID: id, Op: DevRemoved})
			}
			if !delivered {
				return
			}
		case err, ok := <-w.watcher.Errors:
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
