package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wof8317/ds-inhibit-clone/internal/daemon"
	"github.com/wof8317/ds-inhibit-clone/internal/hidraw"
)

// CheckResult represents the result of a diagnostic check.
type CheckResult struct {
	Name    string      `json:"name"`
	Status  CheckStatus `json:"status"`
	Message string      `json:"message"`
	Fix     string      `json:"fix,omitempty"`
}

// CheckStatus represents the status of a diagnostic check.
type CheckStatus int

const (
	// CheckOK indicates the check passed.
	CheckOK CheckStatus = iota
	// CheckWarning indicates a non-critical issue.
	CheckWarning
	// CheckError indicates a critical failure.
	CheckError
	// CheckSkipped indicates the check was skipped.
	CheckSkipped
)

// String returns the status name.
func (s CheckStatus) String() string {
	switch s {
	case CheckOK:
		return "OK"
	case CheckWarning:
		return "WARN"
	case CheckError:
		return "ERROR"
	case CheckSkipped:
		return "SKIP"
	default:
		return "UNKNOWN"
	}
}

// Icon returns the status icon for display.
func (s CheckStatus) Icon() string {
	switch s {
	case CheckOK:
		return "[OK]"
	case CheckWarning:
		return "[!!]"
	case CheckError:
		return "[XX]"
	case CheckSkipped:
		return "[--]"
	default:
		return "[??]"
	}
}

// MarshalJSON implements json.Marshaler.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// DoctorOutput represents the doctor command output for JSON.
type DoctorOutput struct {
	Checks      []CheckResult `json:"checks"`
	HasErrors   bool          `json:"has_errors"`
	HasWarnings bool          `json:"has_warnings"`
}

// newDoctorCmd creates the doctor command.
func (cli *CLI) newDoctorCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose common issues",
		Long: `Run diagnostic checks to identify and troubleshoot common issues.

The doctor command checks:
  - Configuration file validity
  - Root privileges for sysfs writes
  - Presence of the hidraw sysfs class
  - Eligible PlayStation controllers and their inhibit nodes
  - pkg-config availability for install path discovery
  - Daemon status

Use --verbose for suggested fixes.

Examples:
  # Run diagnostics
  ds-inhibit doctor

  # Run with verbose output and suggested fixes
  ds-inhibit doctor --verbose

  # Output as JSON
  ds-inhibit doctor -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			writer, err := cli.output()
			if err != nil {
				return err
			}

			results := cli.runDiagnostics()

			hasErrors := false
			hasWarnings := false
			for _, r := range results {
				if r.Status == CheckError {
					hasErrors = true
				}
				if r.Status == CheckWarning {
					hasWarnings = true
				}
			}

			output := DoctorOutput{
				Checks:      results,
				HasErrors:   hasErrors,
				HasWarnings: hasWarnings,
			}

			writeErr := writer.Write(output, func(w io.Writer) {
				fmt.Fprintln(w, "ds-inhibit Diagnostics")
				fmt.Fprintln(w, "======================")
				fmt.Fprintln(w)

				for _, r := range results {
					fmt.Fprintf(w, "%s %s", r.Status.Icon(), r.Name)
					if r.Message != "" {
						fmt.Fprintf(w, ": %s", r.Message)
					}
					fmt.Fprintln(w)

					if (r.Status == CheckError || r.Status == CheckWarning) && r.Fix != "" && verbose {
						fmt.Fprintf(w, "      -> %s\n", r.Fix)
					}
				}

				fmt.Fprintln(w)
				if hasErrors {
					fmt.Fprintln(w, "Some checks failed. Run with --verbose for suggested fixes.")
				} else if hasWarnings {
					fmt.Fprintln(w, "All critical checks passed with some warnings.")
				} else {
					fmt.Fprintln(w, "All checks passed!")
				}
			})

			if writeErr != nil {
				return writeErr
			}

			if hasErrors {
				return fmt.Errorf("diagnostics failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "V", false, "Show detailed output and suggested fixes")

	return cmd
}

func (cli *CLI) runDiagnostics() []CheckResult {
	return []CheckResult{
		cli.checkConfig(),
		cli.checkPrivileges(),
		cli.checkHidrawClass(),
		cli.checkDevices(),
		cli.checkPkgConfig(),
		cli.checkDaemonStatus(),
	}
}

func (cli *CLI) checkConfig() CheckResult {
	if err := cli.Config.Validate(); err != nil {
		return CheckResult{
			Name:    "Configuration",
			Status:  CheckError,
			Message: fmt.Sprintf("invalid: %v", err),
			Fix:     "Run 'ds-inhibit config edit' to fix the configuration",
		}
	}

	if _, err := os.Stat(cli.Config.FilePath()); os.IsNotExist(err) {
		return CheckResult{
			Name:    "Configuration",
			Status:  CheckOK,
			Message: "no config file, defaults in effect",
		}
	}

	return CheckResult{
		Name:    "Configuration",
		Status:  CheckOK,
		Message: fmt.Sprintf("loaded from %s", cli.Config.FilePath()),
	}
}

func (cli *CLI) checkPrivileges() CheckResult {
	if os.Geteuid() != 0 {
		return CheckResult{
			Name:    "Privileges",
			Status:  CheckWarning,
			Message: "not running as root",
			Fix:     "Inhibiting devices requires write access to sysfs; run the daemon as root or via systemd",
		}
	}
	return CheckResult{
		Name:    "Privileges",
		Status:  CheckOK,
		Message: "running as root",
	}
}

func (cli *CLI) checkHidrawClass() CheckResult {
	classDir := filepath.Join(cli.Config.Paths.Sysfs, "class", "hidraw")
	if _, err := os.Stat(classDir); err != nil {
		return CheckResult{
			Name:    "Hidraw support",
			Status:  CheckError,
			Message: fmt.Sprintf("%s not found", classDir),
			Fix:     "Ensure the hidraw kernel module is available (CONFIG_HIDRAW)",
		}
	}
	return CheckResult{
		Name:    "Hidraw support",
		Status:  CheckOK,
		Message: "sysfs class present",
	}
}

func (cli *CLI) checkDevices() CheckResult {
	sysfs := hidraw.NewSysfs(cli.Config.Paths.Sysfs)
	inhibitor := hidraw.NewInhibitor(sysfs, cli.Config.Match.Drivers)

	ids, err := sysfs.Enumerate()
	if err != nil {
		return CheckResult{
			Name:    "Controllers",
			Status:  CheckError,
			Message: fmt.Sprintf("failed to enumerate hidraw devices: %v", err),
		}
	}

	eligible := 0
	for _, id := range ids {
		if _, err := inhibitor.CanInhibit(id); err == nil {
			eligible++
		} else if !errors.Is(err, hidraw.ErrNotEligible) {
			return CheckResult{
				Name:    "Controllers",
				Status:  CheckWarning,
				Message: fmt.Sprintf("failed to probe hidraw%d: %v", id, err),
			}
		}
	}

	if eligible == 0 {
		return CheckResult{
			Name:    "Controllers",
			Status:  CheckWarning,
			Message: fmt.Sprintf("no eligible controllers among %d hidraw devices", len(ids)),
			Fix:     "Connect a PlayStation controller, or check the configured drivers",
		}
	}

	return CheckResult{
		Name:    "Controllers",
		Status:  CheckOK,
		Message: fmt.Sprintf("%d eligible controller(s) found", eligible),
	}
}

func (cli *CLI) checkPkgConfig() CheckResult {
	if _, err := exec.LookPath("pkg-config"); err != nil {
		return CheckResult{
			Name:    "pkg-config",
			Status:  CheckWarning,
			Message: "not found, install paths fall back to <libdir>/systemd/system",
			Fix:     "Install pkg-config for exact systemd unit directory discovery",
		}
	}
	return CheckResult{
		Name:    "pkg-config",
		Status:  CheckOK,
		Message: "available",
	}
}

func (cli *CLI) checkDaemonStatus() CheckResult {
	if daemon.IsRunningFromPID(cli.Config) {
		pid, err := daemon.GetPID(cli.Config)
		if err == nil {
			return CheckResult{
				Name:    "Daemon",
				Status:  CheckOK,
				Message: fmt.Sprintf("running (PID: %d)", pid),
			}
		}
	}
	return CheckResult{
		Name:    "Daemon",
		Status:  CheckWarning,
		Message: "not running",
		Fix:     "Run 'ds-inhibit service install' or start it manually with 'ds-inhibit run'",
	}
}
