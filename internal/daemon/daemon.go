// Package daemon provides the background inhibition service and its
// supporting infrastructure (logging, health endpoint, service management).
//
// The daemon watches hidraw device nodes belonging to PlayStation
// controllers. While a configured process (normally Steam) holds a node
// open, the kernel mouse emulation of the controller's touchpad is
// inhibited through sysfs; when the last such process closes the node the
// emulation is restored.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/wof8317/ds-inhibit-clone/internal/config"
	"github.com/wof8317/ds-inhibit-clone/internal/hidraw"
	"github.com/wof8317/ds-inhibit-clone/internal/notify"
	"github.com/wof8317/ds-inhibit-clone/internal/procscan"
	"github.com/wof8317/ds-inhibit-clone/internal/watcher"
)

// deviceState tracks a watched hidraw device.
type deviceState struct {
	id    int
	path  string   // device node path, e.g. /dev/hidraw3
	nodes []string // sysfs inhibited attribute paths

	applied   bool // at least one successful write has happened
	inhibited bool // last successfully applied state

	failureCount int
	nextRetry    time.Time
}

// Daemon manages touchpad inhibition for PlayStation controllers.
type Daemon struct {
	config       *config.Config
	inhibitor    *hidraw.Inhibitor
	sysfs        *hidraw.Sysfs
	scanner      *procscan.Scanner
	logger       *Logger
	healthServer *HealthServer
	notifier     notify.Notifier

	nodeWatcher *watcher.NodeWatcher
	devWatcher  *watcher.DevWatcher

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	devices  map[int]*deviceState
}

// New creates a new Daemon instance.
func New(cfg *config.Config) *Daemon {
	logger, err := NewLogger(LoggerConfig{Level: LogLevelInfo})
	if err != nil {
		logger = &Logger{writer: os.Stderr}
	}

	sysfs := hidraw.NewSysfs(cfg.Paths.Sysfs)

	return &Daemon{
		config:    cfg,
		sysfs:     sysfs,
		inhibitor: hidraw.NewInhibitor(sysfs, cfg.Match.Drivers),
		scanner:   procscan.NewScanner(cfg.Paths.Proc),
		logger:    logger,
		notifier:  notify.New(cfg.Daemon.Notifications),
		devices:   make(map[int]*deviceState),
	}
}

// SetLogger sets a custom logger for the daemon.
func (d *Daemon) SetLogger(logger *Logger) {
	d.logger = logger
}

// SetHealthServer sets a health server for the daemon.
func (d *Daemon) SetHealthServer(server *HealthServer) {
	d.healthServer = server
}

// SetNotifier sets a custom notifier for the daemon.
func (d *Daemon) SetNotifier(n notify.Notifier) {
	d.notifier = n
}

// nodePath returns the device node path for a hidraw id.
func (d *Daemon) nodePath(id int) string {
	return filepath.Join(d.config.Paths.Dev, fmt.Sprintf("hidraw%d", id))
}

// Run starts the daemon and blocks until it's stopped.
func (d *Daemon) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return errors.New("daemon is already running")
	}
	d.running = true
	d.stopChan = make(chan struct{})
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	if IsRunningFromPID(d.config) {
		return fmt.Errorf("daemon is already running (another instance detected)")
	}

	if err := writePIDFile(d.config); err != nil {
		return fmt.Errorf("failed to acquire daemon lock (another instance may be starting): %w", err)
	}
	defer removePIDFile(d.config)

	nodeWatcher, err := watcher.NewNodeWatcher()
	if err != nil {
		return fmt.Errorf("failed to create node watcher: %w", err)
	}
	d.nodeWatcher = nodeWatcher
	defer func() {
		_ = nodeWatcher.Close()
		d.nodeWatcher = nil
	}()

	devWatcher, err := watcher.NewDevWatcher(d.config.Paths.Dev)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", d.config.Paths.Dev, err)
	}
	d.devWatcher = devWatcher
	defer func() {
		_ = devWatcher.Close()
		d.devWatcher = nil
	}()

	if d.healthServer != nil {
		if err := d.healthServer.Start(); err != nil {
			d.logger.Warn(fmt.Sprintf("failed to start health server: %v", err))
		} else {
			d.logger.Info("Health server started")
			defer func() {
				if err := d.healthServer.Stop(); err != nil {
					d.logger.Warn(fmt.Sprintf("failed to stop health server: %v", err))
				}
			}()
		}
	}

	defer func() {
		if err := d.logger.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close logger: %v\n", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	d.logger.Info("Starting inhibition server")
	d.logger.Info(fmt.Sprintf("Reconcile interval: %s", d.config.Daemon.CheckInterval))
	d.logger.Info(fmt.Sprintf("Trigger processes: %v", d.config.Match.Processes))

	// Nodes created while the daemon was down
	d.reconcile()

	// settled carries hidraw ids whose settle delay has elapsed
	settled := make(chan int, 16)

	ticker := time.NewTicker(d.config.Daemon.CheckInterval)
	defer ticker.Stop()

	defer d.uninhibitAll()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Context canceled, shutting down")
			return ctx.Err()
		case <-d.stopChan:
			d.logger.Info("Stop signal received, shutting down")
			return nil
		case sig := <-sigChan:
			d.logger.Info(fmt.Sprintf("Received signal %v, shutting down", sig))
			return nil
		case <-ticker.C:
			d.reconcile()
		case id := <-settled:
			d.track(id)
		case ev, ok := <-devWatcher.Events():
			if !ok {
				return errors.New("device watcher terminated")
			}
			d.handleDevEvent(ev, settled)
		case err := <-devWatcher.Errors():
			d.logger.Warn(fmt.Sprintf("Device watcher error: %v", err))
		case ev, ok := <-nodeWatcher.Events():
			if !ok {
				return errors.New("node watcher terminated")
			}
			d.handleNodeEvent(ev)
		}
	}
}

// Stop signals the daemon to stop.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running && d.stopChan != nil {
		close(d.stopChan)
	}
}

// IsRunning returns whether the daemon is running.
func (d *Daemon) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// handleDevEvent reacts to hidraw nodes appearing in or leaving /dev.
func (d *Daemon) handleDevEvent(ev watcher.DevEvent, settled chan<- int) {
	switch ev.Op {
	case watcher.DevAdded:
		d.logger.Debug("New device node found", ev.Path)
		// Give the input subnodes time to enumerate before probing
		id := ev.ID
		time.AfterFunc(d.config.Daemon.SettleDelay, func() {
			select {
			case settled <- id:
			default:
			}
		})
	case watcher.DevRemoved:
		d.forget(ev.ID)
	}
}

// handleNodeEvent reacts to opens, closes, and deletions of watched nodes.
func (d *Daemon) handleNodeEvent(ev watcher.NodeEvent) {
	id, ok := hidraw.ParseNodePath(ev.Path)
	if !ok {
		return
	}

	if ev.Op == watcher.NodeRemoved {
		d.logger.Debug("Device removed", ev.Path)
		d.forget(id)
		return
	}

	if st := d.devices[id]; st != nil {
		d.evaluate(st)
	}
}

// track starts managing a hidraw device if it is eligible. Already-tracked
// devices are re-evaluated.
func (d *Daemon) track(id int) {
	if st := d.devices[id]; st != nil {
		d.evaluate(st)
		return
	}

	path := d.nodePath(id)
	if _, err := os.Stat(path); err != nil {
		// Node disappeared during the settle delay
		return
	}

	nodes, err := d.inhibitor.CanInhibit(id)
	if err != nil {
		if errors.Is(err, hidraw.ErrNotEligible) {
			d.logger.Debug(err.Error())
		} else {
			d.logger.Warn(fmt.Sprintf("Failed to probe device: %v", err), path)
		}
		return
	}

	if d.nodeWatcher != nil {
		if err := d.nodeWatcher.Add(path); err != nil {
			d.logger.Warn(fmt.Sprintf("Failed to watch device: %v", err), path)
			return
		}
	}

	st := &deviceState{id: id, path: path, nodes: nodes}
	d.devices[id] = st
	d.logger.Info("Adding device to watchlist", path)
	d.evaluate(st)
}

// forget drops a device from the watchlist. The device node is gone, so no
// uninhibit is attempted.
func (d *Daemon) forget(id int) {
	st := d.devices[id]
	if st == nil {
		return
	}

	if d.nodeWatcher != nil {
		_ = d.nodeWatcher.Remove(st.path)
	}
	delete(d.devices, id)
	d.logger.Info("Removing device from watchlist", st.path)
}

// evaluate applies the decision rule to a device: inhibited exactly when a
// configured process holds its node open.
func (d *Daemon) evaluate(st *deviceState) {
	holders, err := d.scanner.Holders(st.path)
	if err != nil {
		d.logger.Warn(fmt.Sprintf("Failed to scan process holders: %v", err), st.path)
		return
	}

	want := procscan.AnyMatches(holders, d.config.Match.Processes)
	d.apply(st, want)
}

// apply writes the desired inhibition state, honoring per-device backoff.
func (d *Daemon) apply(st *deviceState, want bool) {
	if st.applied && st.inhibited == want {
		return
	}

	if st.failureCount > 0 && time.Now().Before(st.nextRetry) {
		retryIn := time.Until(st.nextRetry).Round(time.Second)
		d.logger.Debug(fmt.Sprintf("Skipping write due to backoff (retry in %s)", retryIn), st.path)
		return
	}

	if err := hidraw.SetNodes(st.nodes, want); err != nil {
		d.recordFailure(st, err)
		return
	}

	st.applied = true
	st.inhibited = want
	st.failureCount = 0

	if want {
		d.logger.Info("Inhibiting", st.path)
		if d.healthServer != nil {
			d.healthServer.RecordInhibit()
		}
	} else {
		d.logger.Info("Uninhibiting", st.path)
		if d.healthServer != nil {
			d.healthServer.RecordUninhibit()
		}
	}
}

// recordFailure logs a failed write and schedules the next retry with
// exponential backoff.
func (d *Daemon) recordFailure(st *deviceState, err error) {
	st.failureCount++

	initial := d.config.Daemon.InitialRetryBackoff
	if initial == 0 {
		initial = 30 * time.Second
	}
	maxBackoff := d.config.Daemon.MaxRetryBackoff
	if maxBackoff == 0 {
		maxBackoff = 15 * time.Minute
	}

	backoff := initial << (st.failureCount - 1)
	if backoff > maxBackoff || backoff <= 0 {
		backoff = maxBackoff
	}
	st.nextRetry = time.Now().Add(backoff)

	d.logger.Error(fmt.Sprintf("Write failed (attempt %d, retry in %s): %v",
		st.failureCount, backoff, err), st.path)

	if d.healthServer != nil {
		d.healthServer.RecordError()
	}
	if notifyErr := d.notifier.NotifyFailure(st.path, err); notifyErr != nil {
		d.logger.Debug(fmt.Sprintf("Failed to send notification: %v", notifyErr))
	}
}

// reconcile walks sysfs and brings the watchlist and every device's state in
// line with reality. It is the safety net for missed events.
func (d *Daemon) reconcile() {
	ids, err := d.sysfs.Enumerate()
	if err != nil {
		d.logger.Warn(fmt.Sprintf("Failed to enumerate hidraw devices: %v", err))
		return
	}

	present := make(map[int]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}

	// Drop devices that vanished without a remove event
	for id := range d.devices {
		if !present[id] {
			d.forget(id)
		}
	}

	for _, id := range ids {
		if st := d.devices[id]; st != nil {
			// Input nodes can change across reconnects of the same id
			if nodes, err := d.inhibitor.CanInhibit(id); err == nil {
				st.nodes = nodes
			}
			d.evaluate(st)
			continue
		}
		d.track(id)
	}

	if d.healthServer != nil {
		d.healthServer.RecordScan(len(d.devices))
	}
}

// uninhibitAll restores mouse emulation on every watched device. Called on
// shutdown so controllers keep working without the daemon.
func (d *Daemon) uninhibitAll() {
	for _, st := range d.devices {
		if err := hidraw.SetNodes(st.nodes, false); err != nil {
			d.logger.Warn(fmt.Sprintf("Failed to uninhibit on shutdown: %v", err), st.path)
			continue
		}
		st.inhibited = false
	}
}
