package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/wof8317/ds-inhibit-clone/internal/config"
)

func testCLI(t *testing.T) *CLI {
	t.Helper()

	cfg := config.Default()
	cfg.Paths.Dev = t.TempDir()
	cfg.Paths.Sysfs = t.TempDir()
	cfg.Paths.Proc = t.TempDir()

	cli := New()
	cli.Config = cfg
	return cli
}

// fakeController assembles an eligible hidraw device under the fake sysfs.
func fakeController(t *testing.T, cfg *config.Config, id int, driver string) {
	t.Helper()

	devDir := filepath.Join(cfg.Paths.Sysfs, "class", "hidraw", "hidraw"+strconv.Itoa(id), "device")
	inputDir := filepath.Join(devDir, "input", "input5")
	if err := os.MkdirAll(filepath.Join(inputDir, "mouse0"), 0755); err != nil {
		t.Fatal(err)
	}

	driverDir := filepath.Join(cfg.Paths.Sysfs, "bus", "hid", "drivers", driver)
	if err := os.MkdirAll(driverDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(driverDir, filepath.Join(devDir, "driver")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(inputDir, "inhibited"), []byte("0\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCheckStatusString(t *testing.T) {
	tests := []struct {
		status CheckStatus
		want   string
	}{
		{CheckOK, "OK"},
		{CheckWarning, "WARN"},
		{CheckError, "ERROR"},
		{CheckSkipped, "SKIP"},
		{CheckStatus(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("CheckStatus(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestCheckStatusMarshalJSON(t *testing.T) {
	data, err := json.Marshal(CheckResult{Name: "test", Status: CheckWarning})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if want := `"status":"WARN"`; !strings.Contains(string(data), want) {
		t.Errorf("Marshal() = %s, want it to contain %s", data, want)
	}
}

func TestCheckHidrawClass(t *testing.T) {
	cli := testCLI(t)

	result := cli.checkHidrawClass()
	if result.Status != CheckError {
		t.Errorf("checkHidrawClass() status = %v, want CheckError without class dir", result.Status)
	}

	if err := os.MkdirAll(filepath.Join(cli.Config.Paths.Sysfs, "class", "hidraw"), 0755); err != nil {
		t.Fatal(err)
	}
	result = cli.checkHidrawClass()
	if result.Status != CheckOK {
		t.Errorf("checkHidrawClass() status = %v, want CheckOK", result.Status)
	}
}

func TestCheckDevices(t *testing.T) {
	cli := testCLI(t)

	result := cli.checkDevices()
	if result.Status != CheckWarning {
		t.Errorf("checkDevices() status = %v, want CheckWarning without controllers", result.Status)
	}

	fakeController(t, cli.Config, 0, "playstation")
	fakeController(t, cli.Config, 1, "hid-generic")

	result = cli.checkDevices()
	if result.Status != CheckOK {
		t.Errorf("checkDevices() status = %v (%s), want CheckOK", result.Status, result.Message)
	}
}

func TestCheckDaemonStatusNotRunning(t *testing.T) {
	cli := testCLI(t)
	cli.Config.Daemon.PIDFile = filepath.Join(t.TempDir(), "ds-inhibit.pid")

	result := cli.checkDaemonStatus()
	if result.Status != CheckWarning {
		t.Errorf("checkDaemonStatus() status = %v, want CheckWarning", result.Status)
	}
}

func TestCheckConfigValid(t *testing.T) {
	cli := testCLI(t)

	result := cli.checkConfig()
	if result.Status != CheckOK {
		t.Errorf("checkConfig() status = %v (%s), want CheckOK", result.Status, result.Message)
	}

	cli.Config.Daemon.CheckInterval = 0
	result = cli.checkConfig()
	if result.Status != CheckError {
		t.Errorf("checkConfig() status = %v, want CheckError for invalid config", result.Status)
	}
}
