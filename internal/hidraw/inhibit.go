package hidraw

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotEligible is returned when a device cannot be inhibited.
var ErrNotEligible = errors.New("device is not eligible for inhibition")

// Inhibitor decides eligibility and flips the inhibited attribute for hidraw
// devices of the configured drivers.
type Inhibitor struct {
	sysfs   *Sysfs
	drivers map[string]bool
}

// NewInhibitor creates an Inhibitor for the given sysfs tree and driver names.
func NewInhibitor(sysfs *Sysfs, drivers []string) *Inhibitor {
	set := make(map[string]bool, len(drivers))
	for _, d := range drivers {
		set[d] = true
	}
	return &Inhibitor{sysfs: sysfs, drivers: set}
}

// CanInhibit reports whether the device is eligible: bound to one of the
// configured drivers, exposing at least one mouse input node, with every
// inhibited attribute writable. The returned node list is non-empty exactly
// when eligible.
func (i *Inhibitor) CanInhibit(id int) ([]string, error) {
	driver, err := i.sysfs.Driver(id)
	if err != nil {
		return nil, err
	}
	if !i.drivers[driver] {
		return nil, fmt.Errorf("hidraw%d driver %q: %w", id, driver, ErrNotEligible)
	}

	nodes, err := i.sysfs.Nodes(id)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("hidraw%d has no mouse input nodes: %w", id, ErrNotEligible)
	}

	for _, node := range nodes {
		if !writable(node) {
			return nil, fmt.Errorf("hidraw%d node %s is not writable: %w", id, node, ErrNotEligible)
		}
	}

	return nodes, nil
}

// SetInhibited writes the inhibited attribute on every mouse input node of
// the device. Errors are joined so one failing node does not hide the others.
func (i *Inhibitor) SetInhibited(id int, inhibited bool) error {
	nodes, err := i.sysfs.Nodes(id)
	if err != nil {
		return err
	}
	return SetNodes(nodes, inhibited)
}

// SetNodes writes the inhibited attribute to an explicit node list, used when
// the caller has already resolved the nodes for a device.
func SetNodes(nodes []string, inhibited bool) error {
	value := "0\n"
	if inhibited {
		value = "1\n"
	}

	var errs []error
	for _, node := range nodes {
		if err := os.WriteFile(node, []byte(value), 0644); err != nil {
			errs = append(errs, fmt.Errorf("failed to write %s: %w", node, err))
		}
	}
	return errors.Join(errs...)
}

// Inhibited reads the current inhibited state of a node path.
func Inhibited(node string) (bool, error) {
	data, err := os.ReadFile(node)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(data)) == "1", nil
}
