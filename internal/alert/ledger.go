// Package alert decides whether a device status transition becomes a
// notification, gated by maintenance windows and per-direction cooldowns.
package alert

import (
	"context"
	"sync"
	"time"
)

// Ledger tracks the last successful send per (tenant, device, event type).
// The single row per key is the sole source of truth for cooldown gating;
// it survives history retention pruning and makes the decision O(1).
type Ledger interface {
	LastAlertSent(ctx context.Context, tenantID, deviceID, eventType string) (*time.Time, error)
	RecordAlertSent(ctx context.Context, tenantID, deviceID, eventType string, at time.Time) error
}

// MemoryLedger is an in-process Ledger for tests and store-less runs.
type MemoryLedger struct {
	mu   sync.Mutex
	sent map[string]time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{sent: make(map[string]time.Time)}
}

func ledgerKey(tenantID, deviceID, eventType string) string {
	return tenantID + "\x00" + deviceID + "\x00" + eventType
}

func (l *MemoryLedger) LastAlertSent(_ context.Context, tenantID, deviceID, eventType string) (*time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	at, ok := l.sent[ledgerKey(tenantID, deviceID, eventType)]
	if !ok {
		return nil, nil
	}
	return &at, nil
}

func (l *MemoryLedger) RecordAlertSent(_ context.Context, tenantID, deviceID, eventType string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent[ledgerKey(tenantID, deviceID, eventType)] = at
	return nil
}
