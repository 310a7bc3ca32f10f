package probe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/abedinzadeh/dashmon.online/internal/safenet"
	"github.com/abedinzadeh/dashmon.online/internal/storage"
)

// tcpProbe attempts a raw connection to host:port. Connect success is up
// with the connect time as latency; refusal or timeout is down.
func (e *Executor) tcpProbe(ctx context.Context, host string, port int) *Outcome {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	dialer := net.Dialer{
		Timeout: e.tcpTimeout,
		Control: safenet.MaybeDialControl(e.allowPrivate),
	}

	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	elapsed := time.Since(start)

	if err != nil {
		detail := map[string]any{"port": port, "error": err.Error()}
		if isTimeout(err) {
			detail = map[string]any{"port": port, "timeout": true}
		}
		return &Outcome{
			Status:     storage.StatusDown,
			LatencyMs:  millis(elapsed),
			PacketLoss: 100,
			Detail:     detail,
		}
	}
	conn.Close()

	return &Outcome{
		Status:     storage.StatusUp,
		LatencyMs:  millis(elapsed),
		PacketLoss: 0,
		Detail:     map[string]any{"port": port},
	}
}
