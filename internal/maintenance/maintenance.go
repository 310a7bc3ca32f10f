// Package maintenance decides whether a device is currently silenced by a
// maintenance window, its own or its group's.
package maintenance

import "time"

// Window is a maintenance time range. A nil End means the window stays
// active until explicitly cleared.
type Window struct {
	Start time.Time
	End   *time.Time
}

// Active reports whether now falls inside the window. A window whose start
// is in the future is inactive; a past start with no end is active
// indefinitely.
func (w *Window) Active(now time.Time) bool {
	if w == nil || w.Start.IsZero() {
		return false
	}
	if now.Before(w.Start) {
		return false
	}
	if w.End == nil {
		return true
	}
	return now.Before(*w.End)
}

// Suppressed reports whether alerting for a device is silenced at now.
// An active group window wins unconditionally; the device window is only
// consulted when the group has none active.
func Suppressed(device, group *Window, now time.Time) bool {
	if group.Active(now) {
		return true
	}
	return device.Active(now)
}
