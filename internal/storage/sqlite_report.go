package storage

import (
	"context"
	"time"
)

// GetUptimePercent returns the share of samples with status "up" or
// "warning" in [from, to). No samples counts as 100%.
func (s *SQLiteStore) GetUptimePercent(ctx context.Context, deviceID string, from, to time.Time) (float64, error) {
	var total, up int64
	err := s.readDB.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN status IN ('up','warning') THEN 1 ELSE 0 END), 0)
		 FROM history_samples WHERE device_id=? AND created_at >= ? AND created_at < ?`,
		deviceID, formatTime(from), formatTime(to)).Scan(&total, &up)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 100, nil
	}
	return float64(up) / float64(total) * 100, nil
}

// DowntimeBetween sums the time spent down in [from, to) by integrating
// consecutive-sample spacing: each down sample contributes the gap to the
// following sample (or to the range end for the last one). An outage that
// began inside a sampling gap is counted only from its first down sample,
// so the result is a sample-interval-bounded approximation, not an exact
// duration.
func (s *SQLiteStore) DowntimeBetween(ctx context.Context, deviceID string, from, to time.Time) (time.Duration, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT status, created_at FROM history_samples
		 WHERE device_id=? AND created_at >= ? AND created_at < ?
		 ORDER BY created_at ASC, id ASC`,
		deviceID, formatTime(from), formatTime(to))
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var down time.Duration
	var prevDown bool
	var prevAt time.Time
	for rows.Next() {
		var status, createdAt string
		if err := rows.Scan(&status, &createdAt); err != nil {
			return 0, err
		}
		at := parseTime(createdAt)
		if prevDown {
			down += at.Sub(prevAt)
		}
		prevDown = status == StatusDown
		prevAt = at
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if prevDown {
		down += to.Sub(prevAt)
	}
	return down, nil
}
