package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewHealthServerAddrDefaults(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", DefaultHealthAddr},
		{":8080", "localhost:8080"},
		{"8080", "localhost:8080"},
		{"127.0.0.1:9000", "127.0.0.1:9000"},
	}

	for _, tt := range tests {
		server := NewHealthServer(tt.input)
		if server.addr != tt.want {
			t.Errorf("NewHealthServer(%q).addr = %q, want %q", tt.input, server.addr, tt.want)
		}
	}
}

func TestHealthServer_RecordScan(t *testing.T) {
	server := NewHealthServer("localhost:0")

	server.RecordScan(3)

	if server.devicesWatched != 3 {
		t.Errorf("devicesWatched = %d, want 3", server.devicesWatched)
	}
	if server.lastScan.IsZero() {
		t.Error("lastScan should not be zero")
	}
}

func TestHealthServer_Counters(t *testing.T) {
	server := NewHealthServer("localhost:0")

	server.RecordInhibit()
	server.RecordInhibit()
	server.RecordUninhibit()
	server.RecordError()

	if server.inhibitsTotal != 2 {
		t.Errorf("inhibitsTotal = %d, want 2", server.inhibitsTotal)
	}
	if server.uninhibitsTotal != 1 {
		t.Errorf("uninhibitsTotal = %d, want 1", server.uninhibitsTotal)
	}
	if server.errorsTotal != 1 {
		t.Errorf("errorsTotal = %d, want 1", server.errorsTotal)
	}
}

func TestHealthServer_HandleHealth(t *testing.T) {
	server := NewHealthServer("localhost:0")
	server.RecordScan(2)
	server.RecordInhibit()
	server.RecordError()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	server.handleHealth(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Status code = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var status HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if status.Status != "ok" {
		t.Errorf("status = %q, want ok", status.Status)
	}
	if status.DevicesWatched != 2 {
		t.Errorf("DevicesWatched = %d, want 2", status.DevicesWatched)
	}
	if status.InhibitsTotal != 1 {
		t.Errorf("InhibitsTotal = %d, want 1", status.InhibitsTotal)
	}
	if status.ErrorsTotal != 1 {
		t.Errorf("ErrorsTotal = %d, want 1", status.ErrorsTotal)
	}
}

func TestHealthServer_HandleMetrics(t *testing.T) {
	server := NewHealthServer("localhost:0")
	server.RecordScan(1)
	server.RecordInhibit()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	server.handleMetrics(w, req)

	body := w.Body.String()
	for _, metric := range []string{
		"ds_inhibit_uptime_seconds",
		"ds_inhibit_devices_watched 1",
		"ds_inhibit_inhibits_total 1",
		"ds_inhibit_uninhibits_total 0",
		"ds_inhibit_errors_total 0",
		"ds_inhibit_last_scan_timestamp",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("metrics output missing %q:\n%s", metric, body)
		}
	}
}
