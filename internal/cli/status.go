package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wof8317/ds-inhibit-clone/internal/daemon"
	"github.com/wof8317/ds-inhibit-clone/internal/utils"
)

// StatusOutput represents daemon status for JSON output.
type StatusOutput struct {
	Running       bool               `json:"running"`
	PID           int                `json:"pid,omitempty"`
	Configuration ConfigStatusOutput `json:"configuration"`
	Service       *ServiceInfoOutput `json:"service,omitempty"`
}

// ConfigStatusOutput represents the effective configuration for JSON output.
type ConfigStatusOutput struct {
	Processes     []string `json:"processes"`
	Drivers       []string `json:"drivers"`
	CheckInterval string   `json:"check_interval"`
	SettleDelay   string   `json:"settle_delay"`
}

// ServiceInfoOutput represents service installation status for JSON output.
type ServiceInfoOutput struct {
	ServiceFile string `json:"service_file"`
	Installed   bool   `json:"installed"`
	Running     bool   `json:"running"`
	PID         int    `json:"pid,omitempty"`
}

// newStatusCmd creates the status command.
func (cli *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check if the daemon process is running",
		Long: `Check if the inhibition daemon is currently running.

This command checks for a running daemon process by looking for the PID
file. Use 'ds-inhibit service status' for the systemd unit state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, err := cli.output()
			if err != nil {
				return err
			}

			running := daemon.IsRunningFromPID(cli.Config)
			pid := 0
			if running {
				var pidErr error
				pid, pidErr = daemon.GetPID(cli.Config)
				if pidErr != nil {
					// PID file might be stale, but daemon is running
					pid = 0
				}
			}

			statusOutput := StatusOutput{
				Running: running,
				PID:     pid,
				Configuration: ConfigStatusOutput{
					Processes:     cli.Config.Match.Processes,
					Drivers:       cli.Config.Match.Drivers,
					CheckInterval: cli.Config.Daemon.CheckInterval.String(),
					SettleDelay:   cli.Config.Daemon.SettleDelay.String(),
				},
			}

			return output.Write(statusOutput, func(w io.Writer) {
				if running {
					fmt.Fprintf(w, "Daemon is running (PID: %d)\n", pid)
				} else {
					fmt.Fprintln(w, "Daemon is not running")
				}

				fmt.Fprintf(w, "\nConfiguration:\n")
				fmt.Fprintf(w, "  Trigger processes: %v\n", cli.Config.Match.Processes)
				fmt.Fprintf(w, "  Drivers:           %v\n", cli.Config.Match.Drivers)
				fmt.Fprintf(w, "  Check interval:    %s\n", utils.FormatDuration(cli.Config.Daemon.CheckInterval))
				fmt.Fprintf(w, "  Settle delay:      %s\n", cli.Config.Daemon.SettleDelay)
			})
		},
	}
}
