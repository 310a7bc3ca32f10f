package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

func (s *SQLiteStore) UpsertAlertConfig(ctx context.Context, c *AlertConfig) error {
	recipients, _ := json.Marshal(c.Recipients)
	now := formatTime(time.Now())
	_, err := s.writeDB.ExecContext(ctx,
		`INSERT INTO alert_configs (tenant_id, channel, enabled, recipients, cooldown_minutes, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(tenant_id, channel) DO UPDATE SET
		   enabled=excluded.enabled,
		   recipients=excluded.recipients,
		   cooldown_minutes=excluded.cooldown_minutes,
		   updated_at=excluded.updated_at`,
		c.TenantID, c.Channel, boolToInt(c.Enabled), string(recipients), c.CooldownMinutes, now)
	if err != nil {
		return err
	}
	c.UpdatedAt = parseTime(now)
	return nil
}

// GetAlertConfigs returns the tenant's per-channel alert configuration.
// An empty result means alerting is disabled for the tenant.
func (s *SQLiteStore) GetAlertConfigs(ctx context.Context, tenantID string) ([]*AlertConfig, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT id, tenant_id, channel, enabled, recipients, cooldown_minutes, updated_at
		 FROM alert_configs WHERE tenant_id=?`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*AlertConfig
	for rows.Next() {
		var c AlertConfig
		var enabled int
		var recipients, updatedAt string
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Channel, &enabled, &recipients, &c.CooldownMinutes, &updatedAt); err != nil {
			return nil, err
		}
		c.Enabled = enabled != 0
		json.Unmarshal([]byte(recipients), &c.Recipients)
		c.UpdatedAt = parseTime(updatedAt)
		configs = append(configs, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return configs, nil
}

// LastAlertSent returns the time of the last successful send for the
// cooldown key, or nil if none was ever recorded.
func (s *SQLiteStore) LastAlertSent(ctx context.Context, tenantID, deviceID, eventType string) (*time.Time, error) {
	var sentAt string
	err := s.readDB.QueryRowContext(ctx,
		`SELECT sent_at FROM alert_events WHERE tenant_id=? AND device_id=? AND event_type=?`,
		tenantID, deviceID, eventType).Scan(&sentAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t := parseTime(sentAt)
	return &t, nil
}

// RecordAlertSent upserts the single ledger row per (tenant, device,
// event type); a later write wins.
func (s *SQLiteStore) RecordAlertSent(ctx context.Context, tenantID, deviceID, eventType string, at time.Time) error {
	_, err := s.writeDB.ExecContext(ctx,
		`INSERT INTO alert_events (tenant_id, device_id, event_type, sent_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(tenant_id, device_id, event_type) DO UPDATE SET sent_at=excluded.sent_at`,
		tenantID, deviceID, eventType, formatTime(at))
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
