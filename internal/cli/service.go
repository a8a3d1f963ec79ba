package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wof8317/ds-inhibit-clone/internal/daemon"
)

// newServiceCmd creates the service command group.
func (cli *CLI) newServiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the ds-inhibit systemd service",
		Long: `Manage the ds-inhibit systemd system service.

'service install' writes a unit pointing at the current executable,
reloads systemd, and enables and starts the service. Unlike the
'install' command it operates on the live system, not a staging
directory, and requires root.

Examples:
  # Install and start the service
  ds-inhibit service install

  # Check the service status
  ds-inhibit service status

  # Stop and remove the service
  ds-inhibit service uninstall`,
	}

	cmd.AddCommand(
		cli.newServiceInstallCmd(),
		cli.newServiceUninstallCmd(),
		cli.newServiceStartCmd(),
		cli.newServiceStopCmd(),
		cli.newServiceStatusCmd(),
	)

	return cmd
}

// newServiceInstallCmd creates the service install command.
func (cli *CLI) newServiceInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install ds-inhibit as a systemd service",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := cli.getServiceManager()
			if err != nil {
				return err
			}

			installed, installErr := mgr.IsInstalled()
			if installErr == nil && installed {
				fmt.Println("Service is already installed.")
				fmt.Printf("Service file: %s\n", mgr.ServiceFilePath())
				return nil
			}

			fmt.Println("Installing ds-inhibit service...")

			if err := mgr.Install(cmd.Context()); err != nil {
				return fmt.Errorf("failed to install service: %w", err)
			}

			fmt.Println("Service installed and started successfully!")
			fmt.Printf("  Service file: %s\n", mgr.ServiceFilePath())
			fmt.Println()
			fmt.Println("Use 'ds-inhibit service status' to check the service status.")

			return nil
		},
	}
}

// newServiceUninstallCmd creates the service uninstall command.
func (cli *CLI) newServiceUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Uninstall the ds-inhibit service",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := cli.getServiceManager()
			if err != nil {
				return err
			}

			installed, installErr := mgr.IsInstalled()
			if installErr == nil && !installed {
				fmt.Println("Service is not installed.")
				return nil
			}

			fmt.Println("Uninstalling ds-inhibit service...")

			if err := mgr.Uninstall(cmd.Context()); err != nil {
				return fmt.Errorf("failed to uninstall service: %w", err)
			}

			fmt.Println("Service uninstalled successfully!")
			return nil
		},
	}
}

// newServiceStartCmd creates the service start command.
func (cli *CLI) newServiceStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the installed service",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := cli.getServiceManager()
			if err != nil {
				return err
			}

			installed, installErr := mgr.IsInstalled()
			if installErr != nil || !installed {
				return fmt.Errorf("service is not installed; run 'ds-inhibit service install' first")
			}

			if err := mgr.Start(cmd.Context()); err != nil {
				return fmt.Errorf("failed to start service: %w", err)
			}

			fmt.Println("Service started")
			return nil
		},
	}
}

// newServiceStopCmd creates the service stop command.
func (cli *CLI) newServiceStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the installed service",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := cli.getServiceManager()
			if err != nil {
				return err
			}

			if err := mgr.Stop(cmd.Context()); err != nil {
				return fmt.Errorf("failed to stop service: %w", err)
			}

			fmt.Println("Service stopped")
			return nil
		},
	}
}

// newServiceStatusCmd creates the service status command.
func (cli *CLI) newServiceStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the systemd service status",
		RunE: func(cmd *cobra.Command, args []string) error {
			output, err := cli.output()
			if err != nil {
				return err
			}

			mgr, err := cli.getServiceManager()
			if err != nil {
				return err
			}

			status, err := mgr.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get service status: %w", err)
			}

			serviceInfo := &ServiceInfoOutput{
				ServiceFile: mgr.ServiceFilePath(),
				Installed:   status.Installed,
				Running:     status.Running,
				PID:         status.PID,
			}

			statusOutput := StatusOutput{
				Service: serviceInfo,
			}

			return output.Write(statusOutput, func(w io.Writer) {
				fmt.Fprintln(w, "Systemd service:")
				if serviceInfo.Installed {
					fmt.Fprintf(w, "  Installed: yes\n")
					fmt.Fprintf(w, "  Service file: %s\n", serviceInfo.ServiceFile)
					if serviceInfo.Running {
						fmt.Fprintf(w, "  Running: yes (PID: %d)\n", serviceInfo.PID)
					} else {
						fmt.Fprintf(w, "  Running: no\n")
					}
				} else {
					fmt.Fprintf(w, "  Installed: no\n")
					fmt.Fprintf(w, "  Run 'ds-inhibit service install' to install the service\n")
				}
			})
		},
	}
}

// getServiceManager creates a service manager instance.
func (cli *CLI) getServiceManager() (daemon.ServiceManager, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable path: %w", err)
	}

	return daemon.NewServiceManager(daemon.ServiceConfig{
		ExecutablePath: execPath,
	})
}
