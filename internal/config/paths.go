// Package config provides configuration management for ds-inhibit.
package config

import (
	"os"
	"path/filepath"
)

const (
	// AppName is the application name used for directories.
	AppName = "ds-inhibit"
	// ConfigFileName is the default configuration file name.
	ConfigFileName = "config.yaml"
)

// Paths holds all the application paths.
type Paths struct {
	ConfigDir  string
	StateDir   string
	LogDir     string
	ConfigFile string
}

// GetPaths returns the application paths. ds-inhibit runs as a root system
// daemon, so system locations are used when running as root; unprivileged
// runs (development, tests) fall back to XDG user directories.
func GetPaths() Paths {
	configDir := getConfigDir()
	return Paths{
		ConfigDir:  configDir,
		StateDir:   getStateDir(),
		LogDir:     getLogDir(),
		ConfigFile: filepath.Join(configDir, ConfigFileName),
	}
}

// getConfigDir returns the configuration directory path.
func getConfigDir() string {
	// Check for explicit override
	if dir := os.Getenv("DS_INHIBIT_CONFIG_DIR"); dir != "" {
		return dir
	}

	if os.Geteuid() == 0 {
		return filepath.Join("/etc", AppName)
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, AppName)
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", AppName)
	}

	// Last resort: current directory
	return "." + AppName
}

// getStateDir returns the runtime state directory path (PID file).
func getStateDir() string {
	if dir := os.Getenv("DS_INHIBIT_STATE_DIR"); dir != "" {
		return dir
	}

	if os.Geteuid() == 0 {
		return filepath.Join("/run", AppName)
	}

	if xdgState := os.Getenv("XDG_STATE_HOME"); xdgState != "" {
		return filepath.Join(xdgState, AppName)
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".local", "state", AppName)
	}

	return "." + AppName
}

// getLogDir returns the log directory path.
func getLogDir() string {
	if dir := os.Getenv("DS_INHIBIT_LOG_DIR"); dir != "" {
		return dir
	}

	if os.Geteuid() == 0 {
		return filepath.Join("/var/log", AppName)
	}

	return getStateDir()
}

// EnsureDirs creates the application directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, dir := range []string{p.ConfigDir, p.StateDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
