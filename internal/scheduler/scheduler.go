// Package scheduler drives the check cycle: select due devices, probe
// them, persist observed state and history, and hand status transitions
// to the alert dispatcher.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/abedinzadeh/dashmon.online/internal/config"
	"github.com/abedinzadeh/dashmon.online/internal/probe"
	"github.com/abedinzadeh/dashmon.online/internal/storage"
)

// Prober executes one device check and always yields an outcome.
type Prober interface {
	Probe(ctx context.Context, d *storage.Device) *probe.Outcome
}

// Notifier receives device status transitions.
type Notifier interface {
	HandleTransition(ctx context.Context, dev *storage.Device, grp *storage.Group, prev, next string, now time.Time)
}

// pruneInterval bounds how often the retention purge runs inside the
// tick; the purge itself remains best-effort and never aborts a tick.
const pruneInterval = time.Hour

// Loop is the single scheduler instance. Devices are probed sequentially
// within a tick; the pacing limiter bounds outbound fan-out so a large
// due set cannot flood the network or the store's write connection.
type Loop struct {
	store     storage.Store
	prober    Prober
	notifier  Notifier
	pace      *rate.Limiter
	tick      time.Duration
	batchSize int
	retention time.Duration
	logger    *slog.Logger

	lastPrune time.Time
}

func New(store storage.Store, prober Prober, notifier Notifier, cfg config.SchedulerConfig, retentionDays int, logger *slog.Logger) *Loop {
	return &Loop{
		store:     store,
		prober:    prober,
		notifier:  notifier,
		pace:      rate.NewLimiter(rate.Every(cfg.ProbePacing), 1),
		tick:      cfg.TickInterval,
		batchSize: cfg.BatchSize,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		logger:    logger,
	}
}

// Run executes ticks until the context is canceled. A tick failure is
// logged and the loop retries after the normal inter-tick sleep; the
// loop itself never terminates on one.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("scheduler started",
		"tick_interval", l.tick, "batch_size", l.batchSize, "retention", l.retention)

	for {
		l.safeTick(ctx)
		select {
		case <-ctx.Done():
			l.logger.Info("scheduler stopped")
			return
		case <-time.After(l.tick):
		}
	}
}

func (l *Loop) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("tick panicked", "panic", fmt.Sprint(r))
		}
	}()
	l.runTick(ctx)
}

func (l *Loop) runTick(ctx context.Context) {
	now := time.Now()
	l.maybePrune(ctx, now)

	due, err := l.store.ListDueDevices(ctx, now, l.batchSize)
	if err != nil {
		l.logger.Error("select due devices", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}
	l.logger.Debug("tick", "due", len(due))

	for _, dev := range due {
		if err := l.pace.Wait(ctx); err != nil {
			return
		}
		l.checkDevice(ctx, dev)
	}
}

func (l *Loop) maybePrune(ctx context.Context, now time.Time) {
	if now.Sub(l.lastPrune) < pruneInterval {
		return
	}
	l.lastPrune = now

	deleted, err := l.store.PurgeHistoryBefore(ctx, now.Add(-l.retention))
	if err != nil {
		l.logger.Error("retention prune failed", "error", err)
		return
	}
	if deleted > 0 {
		l.logger.Info("retention prune completed", "deleted", deleted)
	}
}

func (l *Loop) checkDevice(ctx context.Context, dev *storage.Device) {
	out := l.prober.Probe(ctx, dev)

	status := out.Status
	if status == storage.StatusUp && dev.LatencyWarnMs > 0 &&
		out.LatencyMs != nil && *out.LatencyMs > int64(dev.LatencyWarnMs) {
		status = storage.StatusWarning
	}

	now := time.Now()
	if err := l.store.UpdateDeviceCheckState(ctx, dev.ID, status, out.PacketLoss, now); err != nil {
		// last_check_at was not advanced, so the device is naturally
		// re-selected as due on the next tick.
		l.logger.Error("persist check state", "device_id", dev.ID, "error", err)
		return
	}

	detail, _ := json.Marshal(out.Detail)
	sample := &storage.HistorySample{
		DeviceID:   dev.ID,
		Status:     status,
		LatencyMs:  out.LatencyMs,
		PacketLoss: out.PacketLoss,
		Detail:     string(detail),
		CreatedAt:  now,
	}
	if err := l.store.InsertHistorySample(ctx, sample); err != nil {
		l.logger.Error("append history sample", "device_id", dev.ID, "error", err)
		return
	}

	if dev.Status != status {
		l.logger.Info("device status changed",
			"device_id", dev.ID, "name", dev.Name, "from", dev.Status, "to", status)
		grp, err := l.store.GetGroup(ctx, dev.GroupID)
		if err != nil {
			// Without the group row its maintenance window cannot be
			// evaluated, so the dispatch is abandoned rather than risk
			// alerting through an active window. The transition re-fires
			// on the next flap.
			l.logger.Error("load group for alerting", "group_id", dev.GroupID, "error", err)
			return
		}
		l.notifier.HandleTransition(ctx, dev, grp, dev.Status, status, now)
	}
}
