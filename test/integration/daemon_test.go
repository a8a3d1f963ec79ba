//go:build integration && linux

package integration

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/wof8317/ds-inhibit-clone/internal/config"
	"github.com/wof8317/ds-inhibit-clone/internal/daemon"
)

// testEnv carries the fake dev, sysfs, and proc roots for a daemon run.
type testEnv struct {
	cfg *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Paths.Dev = t.TempDir()
	cfg.Paths.Sysfs = t.TempDir()
	cfg.Paths.Proc = t.TempDir()
	cfg.Daemon.CheckInterval = time.Second
	cfg.Daemon.SettleDelay = 50 * time.Millisecond
	cfg.Daemon.PIDFile = filepath.Join(t.TempDir(), "ds-inhibit.pid")

	return &testEnv{cfg: cfg}
}

// addController creates an eligible hidraw device. Returns the inhibited
// attribute path.
func (e *testEnv) addController(t *testing.T, id int, driver string) string {
	t.Helper()

	devDir := filepath.Join(e.cfg.Paths.Sysfs, "class", "hidraw", "hidraw"+strconv.Itoa(id), "device")
	inputDir := filepath.Join(devDir, "input", "input5")
	if err := os.MkdirAll(filepath.Join(inputDir, "mouse0"), 0755); err != nil {
		t.Fatal(err)
	}

	driverDir := filepath.Join(e.cfg.Paths.Sysfs, "bus", "hid", "drivers", driver)
	if err := os.MkdirAll(driverDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(driverDir, filepath.Join(devDir, "driver")); err != nil {
		t.Fatal(err)
	}

	node := filepath.Join(inputDir, "inhibited")
	if err := os.WriteFile(node, []byte("0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	devNode := filepath.Join(e.cfg.Paths.Dev, "hidraw"+strconv.Itoa(id))
	if err := os.WriteFile(devNode, nil, 0644); err != nil {
		t.Fatal(err)
	}
	return node
}

// addHolder creates a /proc entry for a process holding the device open.
func (e *testEnv) addHolder(t *testing.T, pid int, comm string, devPath string) {
	t.Helper()

	pidDir := filepath.Join(e.cfg.Paths.Proc, strconv.Itoa(pid))
	fdDir := filepath.Join(pidDir, "fd")
	if err := os.MkdirAll(fdDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pidDir, "comm"), []byte(comm+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(devPath, filepath.Join(fdDir, "0")); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) removeHolder(t *testing.T, pid int) {
	t.Helper()
	if err := os.RemoveAll(filepath.Join(e.cfg.Paths.Proc, strconv.Itoa(pid))); err != nil {
		t.Fatal(err)
	}
}

// waitForState polls the inhibited attribute until it reaches want.
func waitForState(t *testing.T, node string, want bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(node)
		if err == nil && (strings.TrimSpace(string(data)) == "1") == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("node %s never reached inhibited=%v", node, want)
}

func quietLogger(t *testing.T) *daemon.Logger {
	t.Helper()

	logger, err := daemon.NewLogger(daemon.LoggerConfig{
		Level:    daemon.LogLevelError,
		FilePath: filepath.Join(t.TempDir(), "daemon.log"),
	})
	if err != nil {
		t.Fatal(err)
	}
	return logger
}

func TestDaemonInhibitLifecycle(t *testing.T) {
	env := newTestEnv(t)
	node := env.addController(t, 0, "playstation")
	env.addHolder(t, 100, "steam", filepath.Join(env.cfg.Paths.Dev, "hidraw0"))

	d := daemon.New(env.cfg)
	d.SetLogger(quietLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx)
	}()

	// The initial reconcile inhibits held devices
	waitForState(t, node, true)

	// The periodic reconcile notices the holder is gone
	env.removeHolder(t, 100)
	waitForState(t, node, false)

	d.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func TestDaemonHotplug(t *testing.T) {
	env := newTestEnv(t)

	d := daemon.New(env.cfg)
	d.SetLogger(quietLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx)
	}()

	// Give the watcher time to arm before plugging in the controller
	deadline := time.Now().Add(5 * time.Second)
	for !d.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	node := env.addController(t, 3, "sony")
	env.addHolder(t, 200, "steam", filepath.Join(env.cfg.Paths.Dev, "hidraw3"))

	waitForState(t, node, true)

	d.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}

	// Shutdown restores every device
	data, err := os.ReadFile(node)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "0" {
		t.Error("node should be uninhibited after shutdown")
	}
}

func TestDaemonRefusesSecondInstance(t *testing.T) {
	env := newTestEnv(t)

	if err := os.WriteFile(env.cfg.PIDFilePath(), []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		t.Fatal(err)
	}

	d := daemon.New(env.cfg)
	d.SetLogger(quietLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.Run(ctx); err == nil {
		t.Error("Run() should fail while another instance holds the PID file")
	}
}
