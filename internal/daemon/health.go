package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/wof8317/ds-inhibit-clone/internal/utils"
)

// HealthServer provides an HTTP health endpoint for the daemon.
type HealthServer struct {
	addr   string
	server *http.Server

	mu              sync.RWMutex
	startTime       time.Time
	lastScan        time.Time
	devicesWatched  int
	inhibitsTotal   int
	uninhibitsTotal int
	errorsTotal     int
}

// HealthStatus represents the health endpoint response.
type HealthStatus struct {
	Status          string    `json:"status"`
	Uptime          string    `json:"uptime"`
	UptimeSeconds   float64   `json:"uptime_seconds"`
	LastScan        time.Time `json:"last_scan,omitempty"`
	DevicesWatched  int       `json:"devices_watched"`
	InhibitsTotal   int       `json:"inhibits_total"`
	UninhibitsTotal int       `json:"uninhibits_total"`
	ErrorsTotal     int       `json:"errors_total"`
}

// DefaultHealthAddr is the default address for the health server.
const DefaultHealthAddr = "localhost:9190"

// NewHealthServer creates a new health server.
// For security, addresses without an explicit host default to localhost.
func NewHealthServer(addr string) *HealthServer {
	if addr == "" {
		addr = DefaultHealthAddr
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	if !strings.Contains(addr, ":") {
		addr = "localhost:" + addr
	}

	return &HealthServer{
		addr:      addr,
		startTime: time.Now(),
	}
}

// securityHeaders adds security headers to HTTP responses.
func securityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Cache-Control", "no-store")
		next(w, r)
	}
}

// Start starts the health server.
func (h *HealthServer) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", securityHeaders(h.handleHealth))
	mux.HandleFunc("/metrics", securityHeaders(h.handleMetrics))

	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		if err := h.server.ListenAndServe(); err != http.ErrServerClosed {
			fmt.Printf("Health server error: %v\n", err)
		}
	}()

	return nil
}

// Stop stops the health server.
func (h *HealthServer) Stop() error {
	if h.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return h.server.Shutdown(ctx)
	}
	return nil
}

// RecordScan records a device scan.
func (h *HealthServer) RecordScan(devicesWatched int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastScan = time.Now()
	h.devicesWatched = devicesWatched
}

// RecordInhibit records a device transitioning to inhibited.
func (h *HealthServer) RecordInhibit() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inhibitsTotal++
}

// RecordUninhibit records a device transitioning to uninhibited.
func (h *HealthServer) RecordUninhibit() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.uninhibitsTotal++
}

// RecordError records a failed sysfs write.
func (h *HealthServer) RecordError() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errorsTotal++
}

func (h *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	uptime := time.Since(h.startTime)
	status := HealthStatus{
		Status:          "ok",
		Uptime:          utils.FormatUptime(uptime),
		UptimeSeconds:   uptime.Seconds(),
		LastScan:        h.lastScan,
		DevicesWatched:  h.devicesWatched,
		InhibitsTotal:   h.inhibitsTotal,
		UninhibitsTotal: h.uninhibitsTotal,
		ErrorsTotal:     h.errorsTotal,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

func (h *HealthServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	uptime := time.Since(h.startTime)

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP ds_inhibit_uptime_seconds Daemon uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE ds_inhibit_uptime_seconds gauge\n")
	fmt.Fprintf(w, "ds_inhibit_uptime_seconds %.0f\n\n", uptime.Seconds())

	fmt.Fprintf(w, "# HELP ds_inhibit_devices_watched Number of hidraw devices being watched\n")
	fmt.Fprintf(w, "# TYPE ds_inhibit_devices_watched gauge\n")
	fmt.Fprintf(w, "ds_inhibit_devices_watched %d\n\n", h.devicesWatched)

	fmt.Fprintf(w, "# HELP ds_inhibit_inhibits_total Total inhibit transitions\n")
	fmt.Fprintf(w, "# TYPE ds_inhibit_inhibits_total counter\n")
	fmt.Fprintf(w, "ds_inhibit_inhibits_total %d\n\n", h.inhibitsTotal)

	fmt.Fprintf(w, "# HELP ds_inhibit_uninhibits_total Total uninhibit transitions\n")
	fmt.Fprintf(w, "# TYPE ds_inhibit_uninhibits_total counter\n")
	fmt.Fprintf(w, "ds_inhibit_uninhibits_total %d\n\n", h.uninhibitsTotal)

	fmt.Fprintf(w, "# HELP ds_inhibit_errors_total Total failed sysfs writes\n")
	fmt.Fprintf(w, "# TYPE ds_inhibit_errors_total counter\n")
	fmt.Fprintf(w, "ds_inhibit_errors_total %d\n\n", h.errorsTotal)

	fmt.Fprintf(w, "# HELP ds_inhibit_last_scan_timestamp Unix timestamp of last device scan\n")
	fmt.Fprintf(w, "# TYPE ds_inhibit_last_scan_timestamp gauge\n")
	if !h.lastScan.IsZero() {
		fmt.Fprintf(w, "ds_inhibit_last_scan_timestamp %d\n", h.lastScan.Unix())
	} else {
		fmt.Fprintf(w, "ds_inhibit_last_scan_timestamp 0\n")
	}
}
