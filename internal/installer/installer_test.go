package installer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wof8317/ds-inhibit-clone/internal/execx"
)

func TestSystemdUnitDirFromPkgConfig(t *testing.T) {
	runner := execx.NewMockRunner()
	runner.SetOutput("pkg-config --variable=systemdsystemunitdir systemd", []byte("/usr/lib/systemd/system\n"))

	inst := New(runner)
	got := inst.SystemdUnitDir(context.Background())
	if got != "/usr/lib/systemd/system" {
		t.Errorf("SystemdUnitDir() = %q, want /usr/lib/systemd/system", got)
	}
}

func TestSystemdUnitDirFallback(t *testing.T) {
	runner := execx.NewMockRunner()
	runner.SetError("pkg-config --variable=systemdsystemunitdir systemd", errors.New("exit status 1"))

	inst := New(runner)
	got := inst.SystemdUnitDir(context.Background())
	if got != "/usr/lib/systemd/system" {
		t.Errorf("SystemdUnitDir() fallback = %q, want /usr/lib/systemd/system", got)
	}

	inst.LibDir = "/usr/lib64"
	got = inst.SystemdUnitDir(context.Background())
	if got != "/usr/lib64/systemd/system" {
		t.Errorf("SystemdUnitDir() with libdir = %q, want /usr/lib64/systemd/system", got)
	}
}

func TestUdevRulesDir(t *testing.T) {
	runner := execx.NewMockRunner()
	runner.SetOutput("pkg-config --variable=udevdir udev", []byte("/usr/lib/udev\n"))

	inst := New(runner)
	if got := inst.UdevRulesDir(context.Background()); got != "/usr/lib/udev" {
		t.Errorf("UdevRulesDir() = %q, want /usr/lib/udev", got)
	}

	// Empty pkg-config output falls back too
	runner.SetOutput("pkg-config --variable=udevdir udev", []byte("\n"))
	if got := inst.UdevRulesDir(context.Background()); got != "/usr/lib/udev" {
		t.Errorf("UdevRulesDir() empty output = %q, want /usr/lib/udev", got)
	}
}

func TestEnableNow(t *testing.T) {
	runner := execx.NewMockRunner()
	inst := New(runner)

	if err := inst.EnableNow(context.Background()); err != nil {
		t.Fatalf("EnableNow() error = %v", err)
	}

	calls := runner.Calls()
	want := []string{
		"systemctl daemon-reload",
		"systemctl enable --now ds-inhibit.service",
	}
	if len(calls) != len(want) {
		t.Fatalf("EnableNow() calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestEnableNowStaged(t *testing.T) {
	runner := execx.NewMockRunner()
	inst := New(runner)
	inst.DestDir = t.TempDir()

	if err := inst.EnableNow(context.Background()); err == nil {
		t.Error("EnableNow() should fail for a staged install")
	}
	if len(runner.Calls()) != 0 {
		t.Errorf("EnableNow() ran %v, want no systemctl calls for a staged install", runner.Calls())
	}
}

func TestEnableNowFailure(t *testing.T) {
	runner := execx.NewMockRunner()
	runner.SetError("systemctl enable --now ds-inhibit.service", errors.New("unit masked"))

	inst := New(runner)
	if err := inst.EnableNow(context.Background()); err == nil {
		t.Error("EnableNow() should propagate systemctl failure")
	}
}

func TestInstall(t *testing.T) {
	destdir := t.TempDir()

	src := filepath.Join(t.TempDir(), "ds-inhibit")
	if err := os.WriteFile(src, []byte("#!/bin/true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	runner := execx.NewMockRunner()
	runner.SetOutput("pkg-config --variable=systemdsystemunitdir systemd", []byte("/usr/lib/systemd/system\n"))

	inst := New(runner)
	inst.DestDir = destdir

	res, err := inst.Install(context.Background(), src)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	wantBin := filepath.Join(destdir, "usr", "bin", "ds-inhibit")
	if res.BinaryPath != wantBin {
		t.Errorf("BinaryPath = %q, want %q", res.BinaryPath, wantBin)
	}

	info, err := os.Stat(res.BinaryPath)
	if err != nil {
		t.Fatalf("installed binary missing: %v", err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("binary mode = %o, want 0755", info.Mode().Perm())
	}

	wantUnit := filepath.Join(destdir, "usr", "lib", "systemd", "system", "ds-inhibit.service")
	if res.UnitPath != wantUnit {
		t.Errorf("UnitPath = %q, want %q", res.UnitPath, wantUnit)
	}

	info, err = os.Stat(res.UnitPath)
	if err != nil {
		t.Fatalf("installed unit missing: %v", err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("unit mode = %o, want 0644", info.Mode().Perm())
	}

	unit, err := os.ReadFile(res.UnitPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(unit), "ExecStart=/usr/bin/ds-inhibit run") {
		t.Errorf("unit ExecStart should reference the final binary path, got:\n%s", unit)
	}
}

func TestInstallMissingSource(t *testing.T) {
	runner := execx.NewMockRunner()
	runner.SetError("pkg-config --variable=systemdsystemunitdir systemd", errors.New("no pkg-config"))

	inst := New(runner)
	inst.DestDir = t.TempDir()

	if _, err := inst.Install(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Install() should fail when the source binary is missing")
	}
}

func TestUninstall(t *testing.T) {
	destdir := t.TempDir()

	src := filepath.Join(t.TempDir(), "ds-inhibit")
	if err := os.WriteFile(src, []byte("bin"), 0755); err != nil {
		t.Fatal(err)
	}

	runner := execx.NewMockRunner()
	runner.SetError("pkg-config --variable=systemdsystemunitdir systemd", errors.New("no pkg-config"))

	inst := New(runner)
	inst.DestDir = destdir

	res, err := inst.Install(context.Background(), src)
	if err != nil {
		t.Fatalf("Install() error = %v", err)
	}

	if err := inst.Uninstall(context.Background()); err != nil {
		t.Fatalf("Uninstall() error = %v", err)
	}

	for _, path := range []string{res.BinaryPath, res.UnitPath} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s still present after Uninstall()", path)
		}
	}

	// Uninstalling again is not an error
	if err := inst.Uninstall(context.Background()); err != nil {
		t.Errorf("second Uninstall() error = %v", err)
	}
}

func TestUnitContents(t *testing.T) {
	inst := New(execx.NewMockRunner())
	inst.Prefix = "/usr/local"

	unit, err := inst.UnitContents()
	if err != nil {
		t.Fatalf("UnitContents() error = %v", err)
	}

	content := string(unit)
	if !strings.Contains(content, "ExecStart=/usr/local/bin/ds-inhibit run") {
		t.Errorf("unit should honor the prefix, got:\n%s", content)
	}
	if !strings.Contains(content, "WantedBy=multi-user.target") {
		t.Error("unit should be wanted by multi-user.target")
	}
}
