// Package installer places the ds-inhibit binary and its systemd unit at
// their packaging destinations. Destination directories are discovered
// through pkg-config with hardcoded fallbacks, and every path honors
// DESTDIR for staged installs.
package installer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/wof8317/ds-inhibit-clone/internal/execx"
)

const (
	// BinaryName is the installed executable name.
	BinaryName = "ds-inhibit"
	// UnitName is the installed systemd unit name.
	UnitName = "ds-inhibit.service"
	// DefaultPrefix is the default installation prefix.
	DefaultPrefix = "/usr"
)

const unitTemplate = `[Unit]
Description=DualShock/DualSense touchpad inhibitor
Documentation=https://github.com/wof8317/ds-inhibit-clone
After=systemd-udevd.service

[Service]
Type=simple
ExecStart={{.ExecStart}} run
Restart=on-failure
RestartSec=5

# Security hardening
NoNewPrivileges=true
PrivateTmp=true
ProtectHome=true

[Install]
WantedBy=multi-user.target
`

// Installer performs packaging installs.
type Installer struct {
	// DestDir is prepended to every destination path (staged installs).
	DestDir string
	// Prefix is the installation prefix, /usr when empty.
	Prefix string
	// LibDir is the library directory used for fallbacks, <prefix>/lib when empty.
	LibDir string
	// ExecStart overrides the binary path written into the unit's ExecStart,
	// used when the unit should point at a binary outside the prefix.
	ExecStart string

	runner execx.Runner
}

// New creates an Installer that executes pkg-config through the given runner.
func New(runner execx.Runner) *Installer {
	return &Installer{runner: runner}
}

// prefix returns the effective installation prefix.
func (i *Installer) prefix() string {
	if i.Prefix != "" {
		return i.Prefix
	}
	return DefaultPrefix
}

// libdir returns the effective library directory.
func (i *Installer) libdir() string {
	if i.LibDir != "" {
		return i.LibDir
	}
	return filepath.Join(i.prefix(), "lib")
}

// pkgConfigVar queries a pkg-config variable, returning "" when pkg-config
// is missing, the module is unknown, or the variable is empty.
func (i *Installer) pkgConfigVar(ctx context.Context, variable, module string) string {
	out, err := i.runner.Output(ctx, "pkg-config", "--variable="+variable, module)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// SystemdUnitDir returns the systemd system unit directory, from
// `pkg-config --variable=systemdsystemunitdir systemd` with a
// <libdir>/systemd/system fallback.
func (i *Installer) SystemdUnitDir(ctx context.Context) string {
	if dir := i.pkgConfigVar(ctx, "systemdsystemunitdir", "systemd"); dir != "" {
		return dir
	}
	return filepath.Join(i.libdir(), "systemd", "system")
}

// UdevRulesDir returns the udev directory, from
// `pkg-config --variable=udevdir udev` with a <libdir>/udev fallback.
func (i *Installer) UdevRulesDir(ctx context.Context) string {
	if dir := i.pkgConfigVar(ctx, "udevdir", "udev"); dir != "" {
		return dir
	}
	return filepath.Join(i.libdir(), "udev")
}

// BinaryPath returns the destination path of the executable, DESTDIR included.
func (i *Installer) BinaryPath() string {
	return filepath.Join(i.DestDir, i.prefix(), "bin", BinaryName)
}

// UnitPath returns the destination path of the systemd unit, DESTDIR included.
func (i *Installer) UnitPath(ctx context.Context) string {
	return filepath.Join(i.DestDir, i.SystemdUnitDir(ctx), UnitName)
}

// UnitContents renders the systemd unit. ExecStart always points at the
// final (non-staged) binary location.
func (i *Installer) UnitContents() ([]byte, error) {
	tmpl, err := template.New("unit").Parse(unitTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse unit template: %w", err)
	}

	execStart := i.ExecStart
	if execStart == "" {
		execStart = filepath.Join(i.prefix(), "bin", BinaryName)
	}

	data := struct {
		ExecStart string
	}{
		ExecStart: execStart,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render unit: %w", err)
	}
	return buf.Bytes(), nil
}

// Result describes what an install placed where.
type Result struct {
	BinaryPath string `json:"binary_path"`
	UnitPath   string `json:"unit_path"`
}

// Install copies the executable at srcBinary to <destdir><prefix>/bin with
// mode 0755 and writes the systemd unit to the discovered unit directory
// with mode 0644. Errors from missing sources or unwritable destinations
// propagate unchanged.
func (i *Installer) Install(ctx context.Context, srcBinary string) (Result, error) {
	res := Result{
		BinaryPath: i.BinaryPath(),
		UnitPath:   i.UnitPath(ctx),
	}

	if err := copyFile(srcBinary, res.BinaryPath, 0755); err != nil {
		return res, fmt.Errorf("failed to install binary: %w", err)
	}

	unit, err := i.UnitContents()
	if err != nil {
		return res, err
	}
	if err := writeFile(res.UnitPath, unit, 0644); err != nil {
		return res, fmt.Errorf("failed to install unit: %w", err)
	}

	return res, nil
}

// EnableNow reloads systemd and enables and starts the installed unit.
// Only valid for live installs; with DESTDIR set there is no systemd to
// talk to.
func (i *Installer) EnableNow(ctx context.Context) error {
	if i.DestDir != "" {
		return fmt.Errorf("cannot enable service in a staged install (DESTDIR is set)")
	}
	if err := i.runner.Run(ctx, "systemctl", "daemon-reload"); err != nil {
		return fmt.Errorf("failed to reload systemd: %w", err)
	}
	if err := i.runner.Run(ctx, "systemctl", "enable", "--now", UnitName); err != nil {
		return fmt.Errorf("failed to enable service: %w", err)
	}
	return nil
}

// Uninstall removes the installed binary and unit. Missing files are not
// errors.
func (i *Installer) Uninstall(ctx context.Context) error {
	for _, path := range []string{i.BinaryPath(), i.UnitPath(ctx)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

// copyFile copies src to dst with the given mode, creating parent
// directories as needed.
func copyFile(src, dst string, mode os.FileMode) error {
	// #nosec G304 - src is the running executable or an operator-supplied path
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	// The umask may have masked the executable bits on create
	return os.Chmod(dst, mode)
}

// writeFile writes data to path with the given mode, creating parent
// directories as needed.
func writeFile(path string, data []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return err
	}
	return os.Chmod(path, mode)
}
