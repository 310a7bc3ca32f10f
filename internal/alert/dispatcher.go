package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abedinzadeh/dashmon.online/internal/maintenance"
	"github.com/abedinzadeh/dashmon.online/internal/notify"
	"github.com/abedinzadeh/dashmon.online/internal/storage"
)

// ConfigSource returns a tenant's per-channel alert configuration.
type ConfigSource interface {
	GetAlertConfigs(ctx context.Context, tenantID string) ([]*storage.AlertConfig, error)
}

// Mailer delivers alert mail.
type Mailer interface {
	SendMail(ctx context.Context, to []string, subject, body string) error
}

// SMSSender delivers alert SMS.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) (notify.SMSReceipt, error)
}

// Dispatcher turns status transitions into notifications. Every decision
// is per device: maintenance suppression first, then tenant config, then
// transition direction, then the cooldown ledger.
type Dispatcher struct {
	configs ConfigSource
	ledger  Ledger
	mailer  Mailer
	sms     SMSSender
	logger  *slog.Logger
}

func NewDispatcher(configs ConfigSource, ledger Ledger, mailer Mailer, sms SMSSender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		configs: configs,
		ledger:  ledger,
		mailer:  mailer,
		sms:     sms,
		logger:  logger,
	}
}

// eventTypeFor maps a transition to its cooldown key. Down and up
// transitions use distinct keys; transitions between the healthy states
// (up, warning) are not alert-worthy.
func eventTypeFor(prev, next string) string {
	if next == storage.StatusDown && prev != storage.StatusDown {
		return storage.EventNotifyDown
	}
	if prev == storage.StatusDown && next != storage.StatusDown {
		return storage.EventNotifyUp
	}
	return ""
}

// HandleTransition runs the full alert decision for one device's check.
// It never returns an error: a failed delivery is logged and left
// unrecorded, so the next transition-worthy tick may retry immediately.
func (d *Dispatcher) HandleTransition(ctx context.Context, dev *storage.Device, grp *storage.Group, prev, next string, now time.Time) {
	if prev == next {
		return
	}
	if maintenance.Suppressed(dev.Window(), grp.Window(), now) {
		d.logger.Debug("alert suppressed by maintenance window", "device_id", dev.ID)
		return
	}

	event := eventTypeFor(prev, next)
	if event == "" {
		return
	}

	configs, err := d.configs.GetAlertConfigs(ctx, dev.TenantID)
	if err != nil {
		d.logger.Error("load alert configs", "tenant_id", dev.TenantID, "error", err)
		return
	}

	last, err := d.ledger.LastAlertSent(ctx, dev.TenantID, dev.ID, event)
	if err != nil {
		d.logger.Error("read alert ledger", "device_id", dev.ID, "event", event, "error", err)
		return
	}

	subject, body := formatAlert(dev, next, now)

	sent := 0
	for _, cfg := range configs {
		if !cfg.Enabled || len(cfg.Recipients) == 0 {
			continue
		}
		if last != nil && now.Sub(*last) < cfg.Cooldown() {
			d.logger.Debug("alert in cooldown",
				"device_id", dev.ID, "event", event, "channel", cfg.Channel, "last_sent", *last)
			continue
		}
		if err := d.deliver(ctx, cfg, subject, body); err != nil {
			if errors.Is(err, notify.ErrNotConfigured) {
				d.logger.Info("alert channel not configured, skipping", "channel", cfg.Channel)
			} else {
				d.logger.Error("alert delivery failed",
					"device_id", dev.ID, "channel", cfg.Channel, "error", err)
			}
			continue
		}
		d.logger.Info("alert sent", "device_id", dev.ID, "event", event, "channel", cfg.Channel)
		sent++
	}

	// Only a delivery that actually happened starts a cooldown.
	if sent > 0 {
		if err := d.ledger.RecordAlertSent(ctx, dev.TenantID, dev.ID, event, now); err != nil {
			d.logger.Error("record alert send", "device_id", dev.ID, "event", event, "error", err)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, cfg *storage.AlertConfig, subject, body string) error {
	switch cfg.Channel {
	case storage.ChannelEmail:
		return d.mailer.SendMail(ctx, cfg.Recipients, subject, body)
	case storage.ChannelSMS:
		var lastErr error
		delivered := 0
		for _, to := range cfg.Recipients {
			receipt, err := d.sms.SendSMS(ctx, to, subject)
			if err != nil {
				lastErr = err
				continue
			}
			if receipt.TestMode {
				d.logger.Debug("sms delivered in test mode", "id", receipt.ID)
			}
			delivered++
		}
		if delivered == 0 {
			return lastErr
		}
		return nil
	default:
		return fmt.Errorf("unknown alert channel %q", cfg.Channel)
	}
}

func formatAlert(dev *storage.Device, status string, now time.Time) (subject, body string) {
	target := dev.Host
	if dev.URL != "" {
		target = dev.URL
	}

	switch status {
	case storage.StatusDown:
		subject = fmt.Sprintf("[DOWN] %s (%s)", dev.Name, target)
	case storage.StatusWarning:
		subject = fmt.Sprintf("[RECOVERED, SLOW] %s (%s)", dev.Name, target)
	default:
		subject = fmt.Sprintf("[RECOVERED] %s (%s)", dev.Name, target)
	}

	body = fmt.Sprintf("%s\n\nDevice: %s\nTarget: %s\nStatus: %s\nTime: %s\n",
		subject, dev.Name, target, status, now.UTC().Format(time.RFC3339))
	return subject, body
}
