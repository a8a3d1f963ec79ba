//go:build !linux

package watcher

import "errors"

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

var errUnsupported = errors.New("node watching requires inotify and is only supported on Linux")

// NodeWatcher is a stub on non-Linux platforms (inotify is Linux-only).
type NodeWatcher struct {
	events chan NodeEvent
}

// NewNodeWatcher is not supported on this platform.
func NewNodeWatcher() (*NodeWatcher, error) {
	return nil, errUnsupported
}

// Add is not supported on this platform.
func (w *NodeWatcher) Add(path string) error { return errUnsupported }

// Remove is not supported on this platform.
func (w *NodeWatcher) Remove(path string) error { return errUnsupported }

// Watched is not supported on this platform.
func (w *NodeWatcher) Watched() []string { return nil }

// Events returns a channel that never delivers.
func (w *NodeWatcher) Events() <-chan NodeEvent { return w.events }

// Close is a no-op on this platform.
func (w *NodeWatcher) Close() error { return nil }
