package daemon

import (
	"context"
	"fmt"
	"runtime"

	"github.com/wof8317/ds-inhibit-clone/internal/execx"
)

// ServiceManager provides service installation and management.
type ServiceManager interface {
	// Install installs and starts the service.
	Install(ctx context.Context) error
	// Uninstall stops and removes the service.
	Uninstall(ctx context.Context) error
	// IsInstalled checks if the service is installed.
	IsInstalled() (bool, error)
	// Start starts the service.
	Start(ctx context.Context) error
	// Stop stops the service.
	Stop(ctx context.Context) error
	// Status returns the service status.
	Status(ctx context.Context) (ServiceStatus, error)
	// ServiceFilePath returns the path to the service definition file.
	ServiceFilePath() string
}

// ServiceStatus represents the current status of the service.
type ServiceStatus struct {
	Installed bool   `json:"installed"`
	Running   bool   `json:"running"`
	PID       int    `json:"pid,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ServiceConfig holds configuration for service installation.
type ServiceConfig struct {
	// ExecutablePath is the path to the ds-inhibit binary.
	ExecutablePath string
	// Runner executes systemctl and pkg-config.
	Runner execx.Runner
}

// NewServiceManager creates a platform-appropriate service manager.
// ds-inhibit needs sysfs write access and a system-wide view of /dev, so
// only systemd system services are supported.
func NewServiceManager(cfg ServiceConfig) (ServiceManager, error) {
	if runtime.GOOS != "linux" {
		return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return NewSystemdManager(cfg), nil
}

// ErrServiceNotSupported is returned when an operation is not supported on the current platform.
var ErrServiceNotSupported = fmt.Errorf("not supported on this platform")
