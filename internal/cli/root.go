// Package cli provides the command-line interface for ds-inhibit.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wof8317/ds-inhibit-clone/internal/config"
)

// CLI holds the application state for the CLI.
type CLI struct {
	Config  *config.Config
	rootCmd *cobra.Command

	// Flags
	configFlag  string
	verboseFlag bool
	outputFlag  string
}

// New creates a new CLI instance.
func New() *CLI {
	cli := &CLI{}

	cli.rootCmd = &cobra.Command{
		Use:   "ds-inhibit [command]",
		Short: "ds-inhibit - DualShock/DualSense touchpad inhibitor",
		Long: `ds-inhibit suppresses the kernel mouse emulation of PlayStation
controller touchpads while Steam is using the controller directly.

The daemon watches /dev for hidraw devices handled by the sony or
playstation drivers. While a configured process (normally Steam) holds
such a device open, the touchpad's input nodes are inhibited through
sysfs so games don't see a phantom mouse; when the process lets go,
normal mouse emulation is restored.

Typical usage:
  1. Install the binary and systemd unit: 'ds-inhibit install'
  2. Or manage the live service directly: 'ds-inhibit service install'
  3. Run in the foreground for debugging: 'ds-inhibit run --log-level=debug'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.initialize(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Global flags
	cli.rootCmd.PersistentFlags().StringVarP(&cli.configFlag, "config", "c", "", "Path to configuration file")
	cli.rootCmd.PersistentFlags().BoolVarP(&cli.verboseFlag, "verbose", "v", false, "Enable verbose output")
	cli.rootCmd.PersistentFlags().StringVarP(&cli.outputFlag, "output", "o", "text", "Output format (text, json)")

	cli.addCommands()

	return cli
}

// addCommands adds all subcommands to the root command.
func (cli *CLI) addCommands() {
	cli.rootCmd.AddCommand(
		cli.newVersionCmd(),
		cli.newRunCmd(),
		cli.newStatusCmd(),
		cli.newInstallCmd(),
		cli.newUninstallCmd(),
		cli.newServiceCmd(),
		cli.newConfigCmd(),
		cli.newDoctorCmd(),
		cli.newCompletionCmd(),
	)
}

// initialize loads configuration and sets up the CLI.
func (cli *CLI) initialize(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)

	if cli.configFlag != "" {
		cfg, err = config.LoadFrom(cli.configFlag)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	cli.Config = cfg
	return nil
}

// Execute runs the CLI.
func (cli *CLI) Execute(ctx context.Context) error {
	return cli.rootCmd.ExecuteContext(ctx)
}
