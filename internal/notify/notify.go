// Package notify provides desktop notification support for ds-inhibit.
// Notifications are opt-in; on a headless system or a plain console the
// daemon runs without them.
package notify

import (
	"fmt"

	"github.com/wof8317/ds-inhibit-clone/internal/config"
)

// Notifier defines the interface for sending desktop notifications.
type Notifier interface {
	// NotifyFailure sends a notification about a device that could not be
	// inhibited or uninhibited.
	NotifyFailure(device string, err error) error
}

// Option configures a Notifier.
type Option func(*notifier)

// WithBackend sets a custom notification backend (for testing).
func WithBackend(backend Backend) Option {
	return func(n *notifier) {
		n.backend = backend
	}
}

// notifier sends desktop notifications using the system notification service.
type notifier struct {
	onFailure bool
	backend   Backend
}

// NotifyFailure sends a notification about a failed inhibition write.
func (n *notifier) NotifyFailure(device string, err error) error {
	if !n.onFailure {
		return nil
	}

	title := "ds-inhibit: Device Error"
	message := fmt.Sprintf("Failed to update touchpad inhibition for %s.\nError: %v", device, err)

	return n.backend.Alert(title, message, "")
}

// New creates a new Notifier based on the configuration.
func New(cfg config.NotificationConfig, opts ...Option) Notifier {
	n := &notifier{
		onFailure: cfg.Enabled && cfg.OnFailure,
		backend:   newDesktopBackend(),
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}
