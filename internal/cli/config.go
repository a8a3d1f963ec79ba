package cli

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wof8317/ds-inhibit-clone/internal/config"
)

// configPathOutput represents config path output for JSON.
type configPathOutput struct {
	ConfigFile   string `json:"config_file"`
	ConfigDir    string `json:"config_dir"`
	StateDir     string `json:"state_dir"`
	LogDir       string `json:"log_dir"`
	ConfigExists bool   `json:"config_exists"`
}

// newConfigCmd creates the config command group.
func (cli *CLI) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage ds-inhibit configuration",
		Long: `Manage the ds-inhibit configuration file.

Use 'ds-inhibit config show' to print the effective configuration.
Use 'ds-inhibit config path' to see configuration file locations.
Use 'ds-inhibit config edit' to open the configuration in your editor.`,
	}

	cmd.AddCommand(
		cli.newConfigShowCmd(),
		cli.newConfigPathCmd(),
		cli.newConfigEditCmd(),
		cli.newConfigValidateCmd(),
	)

	return cmd
}

// newConfigShowCmd creates the config show command.
func (cli *CLI) newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output, err := cli.output()
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.WriteJSON(cli.Config)
			}

			// The YAML rendering matches the config file format
			data, err := yaml.Marshal(cli.Config)
			if err != nil {
				return fmt.Errorf("failed to render configuration: %w", err)
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

// newConfigPathCmd creates the config path command.
func (cli *CLI) newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			writer, err := cli.output()
			if err != nil {
				return err
			}

			paths := config.GetPaths()

			_, configErr := os.Stat(paths.ConfigFile)
			output := configPathOutput{
				ConfigFile:   paths.ConfigFile,
				ConfigDir:    paths.ConfigDir,
				StateDir:     paths.StateDir,
				LogDir:       paths.LogDir,
				ConfigExists: configErr == nil,
			}

			return writer.Write(output, func(w io.Writer) {
				fmt.Fprintln(w, "Configuration paths:")
				fmt.Fprintf(w, "  Config file:  %s\n", paths.ConfigFile)
				fmt.Fprintf(w, "  Config dir:   %s\n", paths.ConfigDir)
				fmt.Fprintf(w, "  State dir:    %s\n", paths.StateDir)
				fmt.Fprintf(w, "  Log dir:      %s\n", paths.LogDir)

				fmt.Fprintln(w, "\nStatus:")
				if output.ConfigExists {
					fmt.Fprintf(w, "  Config file exists\n")
				} else {
					fmt.Fprintf(w, "  Config file does not exist (defaults in effect)\n")
				}
			})
		},
	}
}

// newConfigEditCmd creates the config edit command.
func (cli *CLI) newConfigEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Open configuration file in editor",
		RunE: func(cmd *cobra.Command, args []string) error {
			editor := os.Getenv("EDITOR")
			if editor == "" {
				editor = os.Getenv("VISUAL")
			}
			if editor == "" {
				for _, e := range []string{"vim", "vi", "nano"} {
					if _, err := exec.LookPath(e); err == nil {
						editor = e
						break
					}
				}
			}
			if editor == "" {
				return fmt.Errorf("no editor found: set $EDITOR environment variable")
			}

			configPath := cli.Config.FilePath()

			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				if err := cli.Config.Save(); err != nil {
					return fmt.Errorf("failed to create config file: %w", err)
				}
			}

			// #nosec G204 - editor is from $EDITOR env var (user-controlled but expected), configPath is from config file path (controlled)
			editorCmd := exec.Command(editor, configPath)
			editorCmd.Stdin = os.Stdin
			editorCmd.Stdout = os.Stdout
			editorCmd.Stderr = os.Stderr

			return editorCmd.Run()
		},
	}
}

// newConfigValidateCmd creates the config validate command.
func (cli *CLI) newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.Config.Validate(); err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			fmt.Println("Configuration is valid.")
			return nil
		},
	}
}
