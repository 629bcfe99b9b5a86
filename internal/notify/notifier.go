package notify

import (
	"sync"

	"github.com/oszuidwest/zwfm-meter/internal/config"
	"github.com/oszuidwest/zwfm-meter/internal/util"
)

// OverloadEvent describes an edge in the overload state as seen by the
// watcher. JustOverloaded marks the first clipped block of an episode;
// JustRecovered marks the end, with the episode's total duration.
type OverloadEvent struct {
	JustOverloaded bool
	JustRecovered  bool

	// Channel and PeakDb describe the clip that opened the episode.
	Channel int
	PeakDb  float64

	// TotalDuration is the episode length in seconds, set on recovery.
	TotalDuration float64
}

// OverloadNotifier orchestrates notifications for overload events.
// It tracks which notifications have been sent to avoid duplicates,
// and independently triggers webhook, email, and log notifications
// based on configuration.
//
// This separates notification concerns from the overload watcher,
// which only handles pure level detection.
type OverloadNotifier struct {
	cfg *config.Config

	// mu protects the notification state fields below
	mu sync.Mutex

	// Track which notifications have been sent for current overload episode
	webhookSent bool
	emailSent   bool
	logSent     bool
}

// NewOverloadNotifier returns an OverloadNotifier configured with the given config.
func NewOverloadNotifier(cfg *config.Config) *OverloadNotifier {
	return &OverloadNotifier{cfg: cfg}
}

// HandleEvent processes an overload event and triggers appropriate notifications.
func (n *OverloadNotifier) HandleEvent(event OverloadEvent) {
	if event.JustOverloaded {
		n.handleOverloadStart(event.Channel, event.PeakDb)
	}

	if event.JustRecovered {
		n.handleOverloadEnd(event.TotalDuration)
	}
}

// handleOverloadStart triggers notifications when an overload is first detected.
func (n *OverloadNotifier) handleOverloadStart(channel int, peakDb float64) {
	cfg := n.cfg.Snapshot()

	n.trySend(&n.webhookSent, cfg.HasWebhook(), func() { n.sendOverloadWebhook(channel, peakDb) })
	n.trySend(&n.emailSent, cfg.HasEmail(), func() { n.sendOverloadEmail(channel, peakDb) })
	n.trySend(&n.logSent, cfg.HasLogPath(), func() { n.logOverloadStart(channel, peakDb) })
}

// trySend atomically checks and sets a notification flag, then spawns the sender if needed.
func (n *OverloadNotifier) trySend(sent *bool, condition bool, sender func()) {
	n.mu.Lock()
	shouldSend := !*sent && condition
	if shouldSend {
		*sent = true
	}
	n.mu.Unlock()
	if shouldSend {
		go sender()
	}
}

// handleOverloadEnd triggers recovery notifications when the episode ends.
func (n *OverloadNotifier) handleOverloadEnd(totalDuration float64) {
	// Only send recovery notifications if we sent the corresponding start notification
	n.mu.Lock()
	shouldSendWebhookRecovery := n.webhookSent
	shouldSendEmailRecovery := n.emailSent
	shouldSendLogRecovery := n.logSent
	// Reset notification state for next overload episode
	n.webhookSent = false
	n.emailSent = false
	n.logSent = false
	n.mu.Unlock()

	if shouldSendWebhookRecovery {
		go n.sendRecoveryWebhook(totalDuration)
	}

	if shouldSendEmailRecovery {
		go n.sendRecoveryEmail(totalDuration)
	}

	if shouldSendLogRecovery {
		go n.logOverloadEnd(totalDuration)
	}
}

// Reset clears the notification state.
func (n *OverloadNotifier) Reset() {
	n.mu.Lock()
	n.webhookSent = false
	n.emailSent = false
	n.logSent = false
	n.mu.Unlock()
}

// Notification senders.

func (n *OverloadNotifier) sendOverloadWebhook(channel int, peakDb float64) {
	cfg := n.cfg.Snapshot()
	util.LogNotifyResult(
		func() error { return SendOverloadWebhook(cfg.WebhookURL, channel, peakDb) },
		"overload webhook",
	)
}

func (n *OverloadNotifier) sendRecoveryWebhook(duration float64) {
	cfg := n.cfg.Snapshot()
	util.LogNotifyResult(
		func() error { return SendRecoveryWebhook(cfg.WebhookURL, duration) },
		"recovery webhook",
	)
}

func (n *OverloadNotifier) sendOverloadEmail(channel int, peakDb float64) {
	cfg := n.cfg.Snapshot()
	emailCfg := EmailConfigFromValues(cfg.EmailSMTPHost, cfg.EmailSMTPPort,
		cfg.EmailFromName, cfg.EmailUsername, cfg.EmailPassword, cfg.EmailRecipients)
	util.LogNotifyResult(
		func() error { return SendOverloadAlert(emailCfg, channel, peakDb) },
		"overload email",
	)
}

func (n *OverloadNotifier) sendRecoveryEmail(duration float64) {
	cfg := n.cfg.Snapshot()
	emailCfg := EmailConfigFromValues(cfg.EmailSMTPHost, cfg.EmailSMTPPort,
		cfg.EmailFromName, cfg.EmailUsername, cfg.EmailPassword, cfg.EmailRecipients)
	util.LogNotifyResult(
		func() error { return SendRecoveryAlert(emailCfg, duration) },
		"recovery email",
	)
}

func (n *OverloadNotifier) logOverloadStart(channel int, peakDb float64) {
	cfg := n.cfg.Snapshot()
	util.LogNotifyResult(
		func() error { return LogOverloadStart(cfg.LogPath, channel, peakDb) },
		"overload log",
	)
}

func (n *OverloadNotifier) logOverloadEnd(duration float64) {
	cfg := n.cfg.Snapshot()
	util.LogNotifyResult(
		func() error { return LogOverloadEnd(cfg.LogPath, duration) },
		"recovery log",
	)
}
