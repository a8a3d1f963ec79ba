package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/wof8317/ds-inhibit-clone/internal/config"
)

// writePIDFile writes the current process ID to the configured PID file.
// It uses exclusive file creation to prevent multiple instances from
// starting simultaneously.
func writePIDFile(cfg *config.Config) error {
	pidFile := cfg.PIDFilePath()

	if err := os.MkdirAll(filepath.Dir(pidFile), 0755); err != nil {
		return err
	}

	// Retry to handle a stale file racing with its cleanup
	const maxRetries = 3
	for attempt := 0; attempt < maxRetries; attempt++ {
		// #nosec G304 - pidFile is from config paths (controlled)
		file, err := os.OpenFile(pidFile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			if !os.IsExist(err) {
				return fmt.Errorf("failed to create PID file: %w", err)
			}

			existingPID, readErr := GetPID(cfg)
			if readErr != nil {
				// Unreadable PID file - remove and retry
				_ = os.Remove(pidFile)
				continue
			}

			if IsRunningFromPID(cfg) {
				return fmt.Errorf("daemon is already running (PID: %d)", existingPID)
			}

			// Stale PID file - remove and retry
			_ = os.Remove(pidFile)
			continue
		}

		if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
			_ = file.Close()
			_ = os.Remove(pidFile)
			return fmt.Errorf("failed to write PID: %w", err)
		}
		if err := file.Sync(); err != nil {
			_ = file.Close()
			_ = os.Remove(pidFile)
			return fmt.Errorf("failed to sync PID file: %w", err)
		}
		return file.Close()
	}

	return fmt.Errorf("failed to acquire daemon lock after %d attempts", maxRetries)
}

// removePIDFile removes the PID file.
func removePIDFile(cfg *config.Config) {
	_ = os.Remove(cfg.PIDFilePath())
}

// GetPID reads the PID from the PID file, if it exists.
func GetPID(cfg *config.Config) (int, error) {
	// #nosec G304 - pidFile is from config paths (controlled)
	data, err := os.ReadFile(cfg.PIDFilePath())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(data))
}

// IsRunningFromPID checks if a daemon is running based on the PID file.
func IsRunningFromPID(cfg *config.Config) bool {
	pid, err := GetPID(cfg)
	if err != nil {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Unix, FindProcess always succeeds. Signal 0 probes for existence.
	return process.Signal(syscall.Signal(0)) == nil
}
