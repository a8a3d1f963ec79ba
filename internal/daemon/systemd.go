//go:build linux

package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wof8317/ds-inhibit-clone/internal/execx"
	"github.com/wof8317/ds-inhibit-clone/internal/installer"
)

// SystemdManager manages the ds-inhibit system service on Linux.
type SystemdManager struct {
	runner execx.Runner
	inst   *installer.Installer
}

// NewSystemdManager creates a new systemd manager.
func NewSystemdManager(cfg ServiceConfig) *SystemdManager {
	runner := cfg.Runner
	if runner == nil {
		runner = execx.New()
	}

	inst := installer.New(runner)
	inst.ExecStart = cfg.ExecutablePath

	return &SystemdManager{
		runner: runner,
		inst:   inst,
	}
}

// unitPath returns the live unit file location.
func (m *SystemdManager) unitPath(ctx context.Context) string {
	return filepath.Join(m.inst.SystemdUnitDir(ctx), installer.UnitName)
}

// Install writes the unit file to the system unit directory, reloads
// systemd, and enables and starts the service.
func (m *SystemdManager) Install(ctx context.Context) error {
	unit, err := m.inst.UnitContents()
	if err != nil {
		return err
	}

	path := m.unitPath(ctx)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create unit directory: %w", err)
	}
	if err := os.WriteFile(path, unit, 0644); err != nil {
		return fmt.Errorf("failed to write unit file: %w", err)
	}

	if err := m.runner.Run(ctx, "systemctl", "daemon-reload"); err != nil {
		return fmt.Errorf("failed to reload systemd: %w", err)
	}
	if err := m.runner.Run(ctx, "systemctl", "enable", installer.UnitName); err != nil {
		return fmt.Errorf("failed to enable service: %w", err)
	}
	if err := m.runner.Run(ctx, "systemctl", "start", installer.UnitName); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	return nil
}

// Uninstall stops and disables the service and removes the unit file.
func (m *SystemdManager) Uninstall(ctx context.Context) error {
	// Best effort - the service might not be running or enabled
	_ = m.runner.Run(ctx, "systemctl", "stop", installer.UnitName)
	_ = m.runner.Run(ctx, "systemctl", "disable", installer.UnitName)

	if err := os.Remove(m.unitPath(ctx)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove unit file: %w", err)
	}

	_ = m.runner.Run(ctx, "systemctl", "daemon-reload")

	return nil
}

// IsInstalled checks if the unit file is present.
func (m *SystemdManager) IsInstalled() (bool, error) {
	_, err := os.Stat(m.unitPath(context.Background()))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Start starts the service.
func (m *SystemdManager) Start(ctx context.Context) error {
	return m.runner.Run(ctx, "systemctl", "start", installer.UnitName)
}

// Stop stops the service.
func (m *SystemdManager) Stop(ctx context.Context) error {
	return m.runner.Run(ctx, "systemctl", "stop", installer.UnitName)
}

// Status returns the current status of the service.
func (m *SystemdManager) Status(ctx context.Context) (ServiceStatus, error) {
	status := ServiceStatus{}

	installed, err := m.IsInstalled()
	if err != nil {
		return status, err
	}
	status.Installed = installed

	if !installed {
		return status, nil
	}

	out, _ := m.runner.Output(ctx, "systemctl", "is-active", installer.UnitName)
	status.Running = strings.TrimSpace(string(out)) == "active"

	if status.Running {
		if out, err := m.runner.Output(ctx, "systemctl", "show", "-p", "MainPID", installer.UnitName); err == nil {
			var pid int
			if _, err := fmt.Sscanf(string(out), "MainPID=%d", &pid); err == nil && pid > 0 {
				status.PID = pid
			}
		}
	}

	return status, nil
}

// ServiceFilePath returns the path to the unit file.
func (m *SystemdManager) ServiceFilePath() string {
	return m.unitPath(context.Background())
}
