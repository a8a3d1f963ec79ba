package notify

import (
	"errors"
	"strings"
	"testing"

	"github.com/wof8317/ds-inhibit-clone/internal/config"
)

type alertCall struct {
	title    string
	message  string
	iconPath string
}

// mockBackend records alert calls instead of talking to the desktop.
type mockBackend struct {
	alertCalls []alertCall
	err        error
}

func (m *mockBackend) Alert(title, message, iconPath string) error {
	m.alertCalls = append(m.alertCalls, alertCall{title, message, iconPath})
	return m.err
}

func TestNotifyFailure(t *testing.T) {
	mock := &mockBackend{}
	cfg := config.NotificationConfig{
		Enabled:   true,
		OnFailure: true,
	}

	nt := New(cfg, WithBackend(mock))

	writeErr := errors.New("permission denied")
	if err := nt.NotifyFailure("/dev/hidraw0", writeErr); err != nil {
		t.Errorf("NotifyFailure() error = %v", err)
	}

	if len(mock.alertCalls) != 1 {
		t.Fatalf("expected 1 alert call, got %d", len(mock.alertCalls))
	}

	call := mock.alertCalls[0]
	if call.title != "ds-inhibit: Device Error" {
		t.Errorf("title = %q, want device error title", call.title)
	}
	if !strings.Contains(call.message, "/dev/hidraw0") {
		t.Errorf("message should name the device, got %q", call.message)
	}
	if !strings.Contains(call.message, "permission denied") {
		t.Errorf("message should include the error, got %q", call.message)
	}
	if call.iconPath != "" {
		t.Errorf("iconPath = %q, want empty", call.iconPath)
	}
}

func TestNotifyFailureDisabledGlobal(t *testing.T) {
	mock := &mockBackend{}
	cfg := config.NotificationConfig{
		Enabled:   false,
		OnFailure: true,
	}

	nt := New(cfg, WithBackend(mock))

	if err := nt.NotifyFailure("/dev/hidraw0", errors.New("boom")); err != nil {
		t.Errorf("NotifyFailure() error = %v", err)
	}
	if len(mock.alertCalls) != 0 {
		t.Errorf("expected no alert calls when disabled, got %d", len(mock.alertCalls))
	}
}

func TestNotifyFailureDisabledOnFailure(t *testing.T) {
	mock := &mockBackend{}
	cfg := config.NotificationConfig{
		Enabled:   true,
		OnFailure: false,
	}

	nt := New(cfg, WithBackend(mock))

	if err := nt.NotifyFailure("/dev/hidraw0", errors.New("boom")); err != nil {
		t.Errorf("NotifyFailure() error = %v", err)
	}
	if len(mock.alertCalls) != 0 {
		t.Errorf("expected no alert calls, got %d", len(mock.alertCalls))
	}
}

func TestNotifyFailureBackendError(t *testing.T) {
	mock := &mockBackend{err: errors.New("no notification service")}
	cfg := config.NotificationConfig{
		Enabled:   true,
		OnFailure: true,
	}

	nt := New(cfg, WithBackend(mock))

	if err := nt.NotifyFailure("/dev/hidraw0", errors.New("boom")); err == nil {
		t.Error("NotifyFailure() should propagate backend errors")
	}
}
