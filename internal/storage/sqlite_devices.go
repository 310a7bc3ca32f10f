package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const deviceColumns = `id, tenant_id, group_id, name, host, url, port,
	check_interval_secs, latency_warn_ms, status, packet_loss, last_check_at,
	maint_start, maint_end, created_at, updated_at`

func (s *SQLiteStore) CreateDevice(ctx context.Context, d *Device) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.Status == "" {
		d.Status = StatusUnknown
	}
	now := formatTime(time.Now())
	_, err := s.writeDB.ExecContext(ctx,
		`INSERT INTO devices (id, tenant_id, group_id, name, host, url, port,
		   check_interval_secs, latency_warn_ms, status, packet_loss, last_check_at,
		   maint_start, maint_end, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.TenantID, d.GroupID, d.Name, d.Host, d.URL, d.Port,
		d.CheckIntervalSecs, d.LatencyWarnMs, d.Status, d.PacketLoss, formatTimePtr(d.LastCheckAt),
		formatTimePtr(d.MaintStart), formatTimePtr(d.MaintEnd), now, now)
	if err != nil {
		return err
	}
	d.CreatedAt = parseTime(now)
	d.UpdatedAt = parseTime(now)
	return nil
}

func scanDevice(row interface{ Scan(...any) error }) (*Device, error) {
	var d Device
	var lastCheck, maintStart, maintEnd sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&d.ID, &d.TenantID, &d.GroupID, &d.Name, &d.Host, &d.URL, &d.Port,
		&d.CheckIntervalSecs, &d.LatencyWarnMs, &d.Status, &d.PacketLoss, &lastCheck,
		&maintStart, &maintEnd, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	d.LastCheckAt = parseTimePtr(lastCheck)
	d.MaintStart = parseTimePtr(maintStart)
	d.MaintEnd = parseTimePtr(maintEnd)
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return &d, nil
}

func (s *SQLiteStore) GetDevice(ctx context.Context, id string) (*Device, error) {
	return scanDevice(s.readDB.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id=?`, id))
}

func (s *SQLiteStore) ListGroupDevices(ctx context.Context, groupID string) ([]*Device, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE group_id=? ORDER BY name`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDevices(rows)
}

// DeleteDevice removes the device; history and ledger rows cascade.
func (s *SQLiteStore) DeleteDevice(ctx context.Context, id string) error {
	_, err := s.writeDB.ExecContext(ctx, `DELETE FROM devices WHERE id=?`, id)
	return err
}

func (s *SQLiteStore) SetDeviceMaintenance(ctx context.Context, id string, start, end *time.Time) error {
	_, err := s.writeDB.ExecContext(ctx,
		`UPDATE devices SET maint_start=?, maint_end=?, updated_at=? WHERE id=?`,
		formatTimePtr(start), formatTimePtr(end), formatTime(time.Now()), id)
	return err
}

// ListDueDevices returns up to limit devices whose next check time has
// elapsed, never-checked devices first, then stalest first. Read-only:
// claiming a device only happens when the scheduler advances last_check_at
// after its probe.
func (s *SQLiteStore) ListDueDevices(ctx context.Context, now time.Time, limit int) ([]*Device, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices
		 WHERE last_check_at IS NULL
		    OR strftime('%s', last_check_at) + check_interval_secs <= strftime('%s', ?)
		 ORDER BY COALESCE(last_check_at, '') ASC
		 LIMIT ?`,
		formatTime(now), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDevices(rows)
}

func collectDevices(rows *sql.Rows) ([]*Device, error) {
	var devices []*Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return devices, nil
}

// UpdateDeviceCheckState persists the probe outcome. This is the only
// writer of status, packet_loss and last_check_at.
func (s *SQLiteStore) UpdateDeviceCheckState(ctx context.Context, id, status string, packetLoss int, checkedAt time.Time) error {
	_, err := s.writeDB.ExecContext(ctx,
		`UPDATE devices SET status=?, packet_loss=?, last_check_at=?, updated_at=? WHERE id=?`,
		status, packetLoss, formatTime(checkedAt), formatTime(checkedAt), id)
	return err
}
