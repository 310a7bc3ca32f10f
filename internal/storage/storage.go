package storage

import (
	"context"
	"time"
)

// Store defines the complete storage interface.
type Store interface {
	// Tenants
	CreateTenant(ctx context.Context, t *Tenant) error
	GetTenant(ctx context.Context, id string) (*Tenant, error)

	// Groups
	CreateGroup(ctx context.Context, g *Group) error
	GetGroup(ctx context.Context, id string) (*Group, error)
	SetGroupMaintenance(ctx context.Context, id string, start, end *time.Time) error

	// Devices
	CreateDevice(ctx context.Context, d *Device) error
	GetDevice(ctx context.Context, id string) (*Device, error)
	ListGroupDevices(ctx context.Context, groupID string) ([]*Device, error)
	DeleteDevice(ctx context.Context, id string) error
	SetDeviceMaintenance(ctx context.Context, id string, start, end *time.Time) error

	// Due-set selection and check-state writes (scheduler only)
	ListDueDevices(ctx context.Context, now time.Time, limit int) ([]*Device, error)
	UpdateDeviceCheckState(ctx context.Context, id, status string, packetLoss int, checkedAt time.Time) error

	// History
	InsertHistorySample(ctx context.Context, s *HistorySample) error
	ListHistory(ctx context.Context, deviceID string, limit int) ([]*HistorySample, error)
	PurgeHistoryBefore(ctx context.Context, before time.Time) (int64, error)

	// Alert configuration
	UpsertAlertConfig(ctx context.Context, c *AlertConfig) error
	GetAlertConfigs(ctx context.Context, tenantID string) ([]*AlertConfig, error)

	// Alert cooldown ledger
	LastAlertSent(ctx context.Context, tenantID, deviceID, eventType string) (*time.Time, error)
	RecordAlertSent(ctx context.Context, tenantID, deviceID, eventType string, at time.Time) error

	// Reporting
	GetUptimePercent(ctx context.Context, deviceID string, from, to time.Time) (float64, error)
	DowntimeBetween(ctx context.Context, deviceID string, from, to time.Time) (time.Duration, error)

	// Lifecycle
	Close() error
}
