// Package systemd reports service readiness and liveness to the service manager.
package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends sd_notify messages. Every method is a no-op when the
// process was not started by systemd (NOTIFY_SOCKET unset).
type Notifier struct {
	logger *slog.Logger
}

// NewNotifier creates a notifier that logs delivery failures to logger.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger}
}

// Ready tells systemd that startup has finished.
func (n *Notifier) Ready() bool {
	return n.send(daemon.SdNotifyReady)
}

// Stopping tells systemd that shutdown has begun.
func (n *Notifier) Stopping() bool {
	return n.send(daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(status string) bool {
	return n.send("STATUS=" + status)
}

// Run announces readiness, keeps the watchdog fed until ctx is cancelled,
// then announces shutdown.
func (n *Notifier) Run(ctx context.Context) error {
	n.Ready()
	defer n.Stopping()

	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.logger.Warn("Invalid systemd watchdog settings", "error", err)
	}
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	// Half the watchdog interval, as sd_watchdog_enabled(3) recommends.
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	n.logger.Debug("Systemd watchdog enabled", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}

func (n *Notifier) send(state string) bool {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.logger.Warn("Failed to notify systemd", "state", state, "error", err)
	}
	return sent
}
