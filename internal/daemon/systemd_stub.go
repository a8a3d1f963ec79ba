//go:build !linux

package daemon

import "context"

// SystemdManager is a stub for non-Linux platforms.
type SystemdManager struct{}

// NewSystemdManager creates a stub systemd manager.
func NewSystemdManager(cfg ServiceConfig) *SystemdManager {
	return &SystemdManager{}
}

// Install is not supported on this platform.
func (m *SystemdManager) Install(ctx context.Context) error { return ErrServiceNotSupported }

// Uninstall is not supported on this platform.
func (m *SystemdManager) Uninstall(ctx context.Context) error { return ErrServiceNotSupported }

// IsInstalled is not supported on this platform.
func (m *SystemdManager) IsInstalled() (bool, error) { return false, ErrServiceNotSupported }

// Start is not supported on this platform.
func (m *SystemdManager) Start(ctx context.Context) error { return ErrServiceNotSupported }

// Stop is not supported on this platform.
func (m *SystemdManager) Stop(ctx context.Context) error { return ErrServiceNotSupported }

// Status is not supported on this platform.
func (m *SystemdManager) Status(ctx context.Context) (ServiceStatus, error) {
	return ServiceStatus{}, ErrServiceNotSupported
}

// ServiceFilePath is not supported on this platform.
func (m *SystemdManager) ServiceFilePath() string { return "" }
