// Package probe executes protocol-appropriate health checks against
// devices. Probes never return errors: every failure mode, timeouts and
// panics included, is folded into a tagged Outcome so the scheduler loop
// has nothing to catch.
package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/abedinzadeh/dashmon.online/internal/config"
	"github.com/abedinzadeh/dashmon.online/internal/storage"
)

// Outcome is the normalized result of one probe.
type Outcome struct {
	Status     string
	LatencyMs  *int64 // nil when the protocol does not measure latency
	PacketLoss int    // 0-100; a binary proxy for HTTP/TCP
	Detail     map[string]any
}

// Strategy identifies which probe applies to a device. It is derived once
// from the device's configuration, not re-derived at call sites.
type Strategy int

const (
	StrategyHTTP Strategy = iota
	StrategyTCP
	StrategyReach
)

func (s Strategy) String() string {
	switch s {
	case StrategyHTTP:
		return "http"
	case StrategyTCP:
		return "tcp"
	default:
		return "reach"
	}
}

// SelectStrategy maps a device's probe configuration to a strategy:
// explicit URL wins, then explicit port, else reachability probing.
func SelectStrategy(d *storage.Device) Strategy {
	switch {
	case d.URL != "":
		return StrategyHTTP
	case d.Port > 0:
		return StrategyTCP
	default:
		return StrategyReach
	}
}

// Executor runs probes with configured timeouts.
type Executor struct {
	httpTimeout  time.Duration
	tcpTimeout   time.Duration
	reachTimeout time.Duration
	allowPrivate bool

	// fallbackPorts are tried in order when an ICMP echo fails.
	fallbackPorts []int

	// echo is injectable so tests can force reachability failures
	// without touching raw sockets.
	echo func(ctx context.Context, host string, timeout time.Duration, allowPrivate bool) error
}

func NewExecutor(cfg config.ProbeConfig) *Executor {
	return &Executor{
		httpTimeout:   cfg.HTTPTimeout,
		tcpTimeout:    cfg.TCPTimeout,
		reachTimeout:  cfg.ReachTimeout,
		allowPrivate:  cfg.AllowPrivateTargets,
		fallbackPorts: []int{443, 80},
		echo:          icmpEcho,
	}
}

// Probe runs the device's selected strategy and always returns an outcome.
func (e *Executor) Probe(ctx context.Context, d *storage.Device) (out *Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = &Outcome{
				Status:     storage.StatusDown,
				PacketLoss: 100,
				Detail:     map[string]any{"panic": fmt.Sprint(r)},
			}
		}
	}()

	switch SelectStrategy(d) {
	case StrategyHTTP:
		return e.httpProbe(ctx, d.URL)
	case StrategyTCP:
		return e.tcpProbe(ctx, d.Host, d.Port)
	default:
		return e.reachProbe(ctx, d.Host)
	}
}

func millis(d time.Duration) *int64 {
	ms := d.Milliseconds()
	return &ms
}
