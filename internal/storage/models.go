package storage

import (
	"time"

	"github.com/abedinzadeh/dashmon.online/internal/maintenance"
)

// Device status values.
const (
	StatusUnknown     = "unknown"
	StatusUp          = "up"
	StatusDown        = "down"
	StatusWarning     = "warning"
	StatusMaintenance = "maintenance"
)

// Alert event types. Down and up transitions use distinct cooldown keys so
// a recovery notification is never blocked by a down-alert's cooldown.
const (
	EventNotifyDown = "notify_down"
	EventNotifyUp   = "notify_up"
)

// Alert channels.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Tenant is an account owner; all device and alert state is scoped by tenant.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
}

// Group is the monitoring project that owns devices. Its maintenance
// window, when active, suppresses alerting for every device in the group.
type Group struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	Name       string     `json:"name"`
	MaintStart *time.Time `json:"maint_start,omitempty"`
	MaintEnd   *time.Time `json:"maint_end,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Window returns the group's maintenance window, or nil if none is set.
func (g *Group) Window() *maintenance.Window {
	if g == nil || g.MaintStart == nil {
		return nil
	}
	return &maintenance.Window{Start: *g.MaintStart, End: g.MaintEnd}
}

// Device is a monitored endpoint. Status, packet loss and last-check are
// written only by the scheduler; the maintenance window only by tenant
// action.
type Device struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	GroupID  string `json:"group_id"`
	Name     string `json:"name"`

	// Probe configuration: a non-empty URL selects the HTTP probe, a
	// non-zero port the TCP probe, otherwise reachability probing.
	Host string `json:"host"`
	URL  string `json:"url,omitempty"`
	Port int    `json:"port,omitempty"`

	CheckIntervalSecs int `json:"check_interval_secs"`
	LatencyWarnMs     int `json:"latency_warn_ms,omitempty"`

	Status      string     `json:"status"`
	PacketLoss  int        `json:"packet_loss"`
	LastCheckAt *time.Time `json:"last_check_at,omitempty"` // nil: never checked, due immediately

	MaintStart *time.Time `json:"maint_start,omitempty"`
	MaintEnd   *time.Time `json:"maint_end,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Window returns the device's own maintenance window, or nil if none is set.
func (d *Device) Window() *maintenance.Window {
	if d == nil || d.MaintStart == nil {
		return nil
	}
	return &maintenance.Window{Start: *d.MaintStart, End: d.MaintEnd}
}

// EffectiveStatus overlays the maintenance state on the probed status for
// presentation. History keeps the probed status; the overlay is applied
// wherever state is shown.
func EffectiveStatus(d *Device, g *Group, now time.Time) string {
	if maintenance.Suppressed(d.Window(), g.Window(), now) {
		return StatusMaintenance
	}
	return d.Status
}

// HistorySample is one append-only row per executed check.
type HistorySample struct {
	ID         int64     `json:"id"`
	DeviceID   string    `json:"device_id"`
	Status     string    `json:"status"`
	LatencyMs  *int64    `json:"latency_ms,omitempty"` // nil when the protocol does not measure it
	PacketLoss int       `json:"packet_loss"`
	Detail     string    `json:"detail,omitempty"` // free-form diagnostic JSON
	CreatedAt  time.Time `json:"created_at"`
}

// AlertConfig is a tenant's per-channel alert configuration. Absence of a
// row is equivalent to disabled.
type AlertConfig struct {
	ID              int64     `json:"id"`
	TenantID        string    `json:"tenant_id"`
	Channel         string    `json:"channel"`
	Enabled         bool      `json:"enabled"`
	Recipients      []string  `json:"recipients"`
	CooldownMinutes int       `json:"cooldown_minutes"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Cooldown returns the configured cooldown as a duration.
func (c *AlertConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownMinutes) * time.Minute
}
