package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wof8317/ds-inhibit-clone/internal/execx"
	"github.com/wof8317/ds-inhibit-clone/internal/installer"
)

// InstallOutput represents install results for JSON output.
type InstallOutput struct {
	BinaryPath string `json:"binary_path"`
	UnitPath   string `json:"unit_path"`
}

// installerFlags binds the shared packaging flags to an Installer.
func installerFlags(cmd *cobra.Command, inst *installer.Installer) {
	cmd.Flags().StringVar(&inst.DestDir, "destdir", "", "Staging directory prepended to every path (default: $DESTDIR)")
	cmd.Flags().StringVar(&inst.Prefix, "prefix", "", "Installation prefix (default: "+installer.DefaultPrefix+")")
	cmd.Flags().StringVar(&inst.LibDir, "libdir", "", "Library directory for fallback paths (default: <prefix>/lib)")
}

// newInstallCmd creates the install command.
func (cli *CLI) newInstallCmd() *cobra.Command {
	var (
		srcBinary string
		now       bool
	)

	inst := installer.New(execx.New())

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the binary and systemd unit",
		Long: `Install the ds-inhibit binary and its systemd unit.

The binary goes to <prefix>/bin with mode 0755, the unit to the systemd
system unit directory (discovered through pkg-config, falling back to
<libdir>/systemd/system) with mode 0644. Every destination honors the
DESTDIR environment variable or the --destdir flag for staged installs,
as used by distribution packaging.

By default this command only places files. Pass --now to reload systemd
and enable and start the service after a live install.

Examples:
  # Install to the live system (requires root)
  ds-inhibit install

  # Staged install for packaging
  DESTDIR=/tmp/pkg ds-inhibit install --prefix=/usr

  # Install a freshly built binary
  ds-inhibit install --binary=./ds-inhibit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, err := cli.output()
			if err != nil {
				return err
			}

			if inst.DestDir == "" {
				inst.DestDir = os.Getenv("DESTDIR")
			}

			if srcBinary == "" {
				srcBinary, err = os.Executable()
				if err != nil {
					return fmt.Errorf("failed to get executable path: %w", err)
				}
				srcBinary, err = filepath.EvalSymlinks(srcBinary)
				if err != nil {
					return fmt.Errorf("failed to resolve executable path: %w", err)
				}
			}

			res, err := inst.Install(cmd.Context(), srcBinary)
			if err != nil {
				return fmt.Errorf("install failed: %w", err)
			}

			if now {
				if err := inst.EnableNow(cmd.Context()); err != nil {
					return err
				}
			}

			return output.Write(InstallOutput(res), func(w io.Writer) {
				fmt.Fprintln(w, "Installed:")
				fmt.Fprintf(w, "  %s\n", res.BinaryPath)
				fmt.Fprintf(w, "  %s\n", res.UnitPath)
				switch {
				case now:
					fmt.Fprintln(w)
					fmt.Fprintln(w, "Service enabled and started.")
				case inst.DestDir == "":
					fmt.Fprintln(w)
					fmt.Fprintln(w, "Run 'systemctl daemon-reload' and 'systemctl enable --now ds-inhibit.service' to start.")
				}
			})
		},
	}

	installerFlags(cmd, inst)
	cmd.Flags().StringVar(&srcBinary, "binary", "", "Binary to install (default: current executable)")
	cmd.Flags().BoolVar(&now, "now", false, "Reload systemd and enable and start the service after installing")

	return cmd
}

// newUninstallCmd creates the uninstall command.
func (cli *CLI) newUninstallCmd() *cobra.Command {
	inst := installer.New(execx.New())

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the installed binary and systemd unit",
		Long: `Remove the ds-inhibit binary and systemd unit placed by 'install'.

Missing files are ignored, so uninstalling twice is not an error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inst.DestDir == "" {
				inst.DestDir = os.Getenv("DESTDIR")
			}

			if err := inst.Uninstall(cmd.Context()); err != nil {
				return fmt.Errorf("uninstall failed: %w", err)
			}

			fmt.Println("Uninstalled.")
			return nil
		},
	}

	installerFlags(cmd, inst)

	return cmd
}
