// Package procscan finds the processes that hold a device node open by
// walking /proc/<pid>/fd. The proc root is configurable so tests can use a
// fake tree.
package procscan

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Process identifies a process holding a device node open.
type Process struct {
	PID  int
	Comm string
}

// Scanner walks a procfs tree.
type Scanner struct {
	root string
}

// NewScanner creates a Scanner rooted at the given procfs mount point.
func NewScanner(root string) *Scanner {
	return &Scanner{root: root}
}

// Holders returns the processes that have the given device node open.
// Processes whose fd directory cannot be read (permissions, exited mid-scan)
// are skipped; /proc is inherently racy, so the scan is best effort.
func (s *Scanner) Holders(devPath string) ([]Process, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}

	var holders []Process
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}

		if !s.holdsNode(pid, devPath) {
			continue
		}

		holders = append(holders, Process{
			PID:  pid,
			Comm: s.comm(pid),
		})
	}
	return holders, nil
}

// holdsNode reports whether the process has devPath among its open fds.
func (s *Scanner) holdsNode(pid int, devPath string) bool {
	fdDir := filepath.Join(s.root, strconv.Itoa(pid), "fd")
	fds, err := os.ReadDir(fdDir)
	if err != nil {
		return false
	}

	for _, fd := range fds {
		target, err := os.Readlink(filepath.Join(fdDir, fd.Name()))
		if err != nil {
			// fd closed between readdir and readlink
			continue
		}
		if target == devPath {
			return true
		}
	}
	return false
}

// comm returns the process comm name, or "" if it cannot be read.
func (s *Scanner) comm(pid int) string {
	data, err := os.ReadFile(filepath.Join(s.root, strconv.Itoa(pid), "comm"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// AnyMatches reports whether any of the holders' comm names is in the given
// name list.
func AnyMatches(holders []Process, names []string) bool {
	for _, h := range holders {
		for _, name := range names {
			if h.Comm == name {
				return true
			}
		}
	}
	return false
}
