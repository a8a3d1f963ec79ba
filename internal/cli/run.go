package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wof8317/ds-inhibit-clone/internal/daemon"
)

// newRunCmd creates the run command.
func (cli *CLI) newRunCmd() *cobra.Command {
	var (
		logFile    string
		logLevel   string
		logJSON    bool
		healthAddr string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the inhibition daemon in the foreground",
		Long: `Run the touchpad inhibition daemon in the foreground.

This is how the systemd unit starts ds-inhibit, and it is also useful
for debugging. On shutdown every inhibited device is restored.

Examples:
  # Run with debug logging
  ds-inhibit run --log-level=debug

  # Run with JSON logging to a file
  ds-inhibit run --log=/var/log/ds-inhibit/daemon.log --log-json

  # Run with a health endpoint
  ds-inhibit run --health-addr=localhost:9190`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Flags override the config file
			if logFile == "" {
				logFile = cli.Config.Daemon.LogFile
			}
			if logLevel == "" {
				logLevel = cli.Config.Daemon.LogLevel
			}
			if !cmd.Flags().Changed("log-json") {
				logJSON = cli.Config.Daemon.LogJSON
			}
			if healthAddr == "" {
				healthAddr = cli.Config.Daemon.HealthEndpoint
			}

			level, err := daemon.ParseLogLevel(logLevel)
			if err != nil {
				return err
			}
			if cli.verboseFlag && level > daemon.LogLevelDebug {
				level = daemon.LogLevelDebug
			}

			// LogMaxSize is in MB
			maxSize := int64(cli.Config.Daemon.LogMaxSize) * 1024 * 1024

			logger, err := daemon.NewLogger(daemon.LoggerConfig{
				Level:    level,
				FilePath: logFile,
				JSONMode: logJSON,
				MaxSize:  maxSize,
			})
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}

			d := daemon.New(cli.Config)
			d.SetLogger(logger)

			if healthAddr != "" {
				healthServer := daemon.NewHealthServer(healthAddr)
				d.SetHealthServer(healthServer)
				fmt.Printf("Health endpoint will be available at http://%s/health\n", healthAddr)
			}

			if err := d.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&logFile, "log", "", "Log file path (default: stderr)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Output logs as JSON")
	cmd.Flags().StringVar(&healthAddr, "health-addr", "", "Health endpoint address (e.g., localhost:9190)")

	return cmd
}
