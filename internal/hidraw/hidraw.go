// Package hidraw models hidraw devices through sysfs: which HID driver owns
// a device, which of its input nodes emulate a mouse, and the kernel
// `inhibited` attribute that turns that emulation off.
package hidraw

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

// nodePattern matches hidraw device node names.
var nodePattern = regexp.MustCompile(`^hidraw(\d+)$`)

// ParseNodePath extracts the hidraw id from a device node path like
// /dev/hidraw3. The second return value is false if the path is not a hidraw
// node.
func ParseNodePath(path string) (int, bool) {
	m := nodePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

// Sysfs provides access to the hidraw class tree under a sysfs root. The
// root is configurable so diagnostics and tests can point it at a fake tree.
type Sysfs struct {
	root string
}

// NewSysfs creates a Sysfs rooted at the given sysfs mount point.
func NewSysfs(root string) *Sysfs {
	return &Sysfs{root: root}
}

// deviceDir returns the sysfs device directory for a hidraw id.
func (s *Sysfs) deviceDir(id int) string {
	return filepath.Join(s.root, "class", "hidraw", fmt.Sprintf("hidraw%d", id), "device")
}

// Enumerate returns the ids of all hidraw devices currently registered.
func (s *Sysfs) Enumerate() ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, "class", "hidraw"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read hidraw class: %w", err)
	}

	var ids []int
	for _, e := range entries {
		if id, ok := ParseNodePath(e.Name()); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Driver returns the name of the HID driver bound to a hidraw device,
// resolved from the device's driver symlink.
func (s *Sysfs) Driver(id int) (string, error) {
	target, err := os.Readlink(filepath.Join(s.deviceDir(id), "driver"))
	if err != nil {
		return "", fmt.Errorf("failed to resolve driver for hidraw%d: %w", id, err)
	}
	return filepath.Base(target), nil
}

// Nodes returns the `inhibited` attribute paths for every input node of the
// device that exposes a mouse interface. Input nodes without mouse emulation
// (the gamepad itself, motion sensors) are not inhibited.
func (s *Sysfs) Nodes(id int) ([]string, error) {
	inputs, err := filepath.Glob(filepath.Join(s.deviceDir(id), "input", "input*"))
	if err != nil {
		return nil, err
	}

	var nodes []string
	for _, dir := range inputs {
		mice, err := filepath.Glob(filepath.Join(dir, "mouse*"))
		if err != nil {
			return nil, err
		}
		if len(mice) == 0 {
			continue
		}
		nodes = append(nodes, filepath.Join(dir, "inhibited"))
	}
	return nodes, nil
}

// writable reports whether the file at path can be opened for writing.
func writable(path string) bool {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}
