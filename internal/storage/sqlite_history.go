package storage

import (
	"context"
	"database/sql"
	"time"
)

func (s *SQLiteStore) InsertHistorySample(ctx context.Context, h *HistorySample) error {
	if h.Detail == "" {
		h.Detail = "{}"
	}
	createdAt := h.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var latency any
	if h.LatencyMs != nil {
		latency = *h.LatencyMs
	}
	res, err := s.writeDB.ExecContext(ctx,
		`INSERT INTO history_samples (device_id, status, latency_ms, packet_loss, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		h.DeviceID, h.Status, latency, h.PacketLoss, h.Detail, formatTime(createdAt))
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	h.ID = id
	h.CreatedAt = parseTime(formatTime(createdAt))
	return nil
}

// ListHistory returns the newest samples first.
func (s *SQLiteStore) ListHistory(ctx context.Context, deviceID string, limit int) ([]*HistorySample, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT id, device_id, status, latency_ms, packet_loss, detail, created_at
		 FROM history_samples WHERE device_id=? ORDER BY created_at DESC, id DESC LIMIT ?`,
		deviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []*HistorySample
	for rows.Next() {
		var h HistorySample
		var latency sql.NullInt64
		var createdAt string
		if err := rows.Scan(&h.ID, &h.DeviceID, &h.Status, &latency, &h.PacketLoss, &h.Detail, &createdAt); err != nil {
			return nil, err
		}
		if latency.Valid {
			h.LatencyMs = &latency.Int64
		}
		h.CreatedAt = parseTime(createdAt)
		samples = append(samples, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// PurgeHistoryBefore deletes samples older than the retention horizon and
// returns the number of rows removed.
func (s *SQLiteStore) PurgeHistoryBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.writeDB.ExecContext(ctx,
		`DELETE FROM history_samples WHERE created_at < ?`, formatTime(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
