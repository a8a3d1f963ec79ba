//go:build linux

package watcher

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// NodeOp is the kind of node-level event.
type NodeOp int

const (
	// NodeOpened means a process opened the node.
	NodeOpened NodeOp = iota
	// NodeClosed means a process closed the node.
	NodeClosed
	// NodeRemoved means the node itself was deleted.
	NodeRemoved
)

// NodeEvent is an open, close, or delete on a watched device node.
type NodeEvent struct {
	Path string
	Op   NodeOp
}

// nodeWatchMask covers the events the daemon reacts to: processes opening
// and closing the node, and the node going away. fsnotify does not expose
// IN_OPEN/IN_CLOSE, which is why this watcher drives inotify(7) directly.
const nodeWatchMask = unix.IN_OPEN |
	unix.IN_CLOSE_NOWRITE |
	unix.IN_CLOSE_WRITE |
	unix.IN_DELETE_SELF

// NodeWatcher delivers open/close/delete events for individual device nodes.
type NodeWatcher struct {
	// fd duplicates file's descriptor for the watch syscalls; reads go
	// through file so they use the runtime poller and Close can interrupt
	// a blocked read.
	fd     int
	file   *os.File
	events chan NodeEvent
	quit   chan struct{}
	done   chan struct{}

	mu      sync.Mutex
	paths   map[int]string // watch descriptor -> node path
	watches map[string]int // node path -> watch descriptor
	closed  bool
}

// NewNodeWatcher creates a NodeWatcher with no watches.
func NewNodeWatcher() (*NodeWatcher, error) {
	// Non-blocking so the fd registers with the runtime poller
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("inotify_init: %w", err)
	}

	w := &NodeWatcher{
		fd:      fd,
		file:    os.NewFile(uintptr(fd), ""),
		events:  make(chan NodeEvent, 16),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		paths:   make(map[int]string),
		watches: make(map[string]int),
	}
	go w.readLoop()
	return w, nil
}

// Add starts watching a device node for open/close/delete events.
func (w *NodeWatcher) Add(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("watcher is closed")
	}
	if _, ok := w.watches[path]; ok {
		return nil
	}

	wd, err := unix.InotifyAddWatch(w.fd, path, nodeWatchMask)
	if err != nil {
		return fmt.Errorf("inotify_add_watch %s: %w", path, err)
	}

	w.paths[wd] = path
	w.watches[path] = wd
	return nil
}

// Remove stops watching a device node. Removing an unwatched path is a no-op.
func (w *NodeWatcher) Remove(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	wd, ok := w.watches[path]
	if !ok {
		return nil
	}

	delete(w.watches, path)
	delete(w.paths, wd)

	// EINVAL here means the kernel already dropped the watch (node deleted)
	if _, err := unix.InotifyRmWatch(w.fd, uint32(wd)); err != nil && err != unix.EINVAL {
		return fmt.Errorf("inotify_rm_watch %s: %w", path, err)
	}
	return nil
}

// Watched returns the currently watched node paths.
func (w *NodeWatcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.watches))
	for path := range w.watches {
		paths = append(paths, path)
	}
	return paths
}

// Events returns the channel of node events.
func (w *NodeWatcher) Events() <-chan NodeEvent {
	return w.events
}

// Close stops the watcher and closes the event channel.
func (w *NodeWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	// Unblock a pending event send, then interrupt the poller read
	close(w.quit)
	err := w.file.Close()
	<-w.done
	return err
}

// send delivers an event unless the watcher is shutting down.
func (w *NodeWatcher) send(ev NodeEvent) bool {
	select {
	case w.events <- ev:
		return true
	case <-w.quit:
		return false
	}
}

// readLoop reads raw inotify events and translates them onto the event
// channel. It exits when Close closes the inotify file.
func (w *NodeWatcher) readLoop() {
	defer close(w.done)
	defer close(w.events)

	buf := make([]byte, 64*(unix.SizeofInotifyEvent+unix.NAME_MAX+1))
	for {
		n, err := w.file.Read(buf)
		if err != nil {
			return
		}

		offset := 0
		for offset <= n-unix.SizeofInotifyEvent {
			raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
			offset += unix.SizeofInotifyEvent + int(raw.Len)

			w.mu.Lock()
			path, ok := w.paths[int(raw.Wd)]
			if ok && raw.Mask&unix.IN_IGNORED != 0 {
				// Kernel dropped the watch; forget the descriptor
				delete(w.paths, int(raw.Wd))
				delete(w.watches, path)
			}
			w.mu.Unlock()
			if !ok {
				continue
			}

			delivered := true
			switch {
			case raw.Mask&unix.IN_DELETE_SELF != 0:
				delivered = w.send(NodeEvent{Path: path, Op: NodeRemoved})
			case raw.Mask&unix.IN_OPEN != 0:
				delivered = w.send(NodeEvent{Path: path, Op: NodeOpened})
			case raw.Mask&(unix.IN_CLOSE_NOWRITE|unix.IN_CLOSE_WRITE) != 0:
				delivered = w.send(NodeEvent{Path: path, Op: NodeClosed})
			}
			if !delivered {
				return
			}
		}
	}
}
