package probe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/abedinzadeh/dashmon.online/internal/safenet"
	"github.com/abedinzadeh/dashmon.online/internal/storage"
)

// httpProbe issues a GET against the configured URL. Any response below
// 500 counts as up; 5xx, timeouts and connection errors are down. Packet
// loss is a binary proxy: this system does not measure real loss over HTTP.
func (e *Executor) httpProbe(ctx context.Context, url string) *Outcome {
	reqCtx, cancel := context.WithTimeout(ctx, e.httpTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return &Outcome{
			Status:     storage.StatusDown,
			PacketLoss: 100,
			Detail:     map[string]any{"error": "invalid url: " + err.Error()},
		}
	}
	req.Header.Set("User-Agent", "dashmon/1.0")

	client := &http.Client{
		Timeout: e.httpTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: e.httpTimeout,
				Control: safenet.MaybeDialControl(e.allowPrivate),
			}).DialContext,
			DisableKeepAlives: true,
		},
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		detail := map[string]any{"error": err.Error()}
		if isTimeout(err) {
			detail = map[string]any{"timeout": true}
		}
		return &Outcome{
			Status:     storage.StatusDown,
			LatencyMs:  millis(elapsed),
			PacketLoss: 100,
			Detail:     detail,
		}
	}
	resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &Outcome{
			Status:     storage.StatusDown,
			LatencyMs:  millis(elapsed),
			PacketLoss: 100,
			Detail:     map[string]any{"statusCode": resp.StatusCode},
		}
	}

	return &Outcome{
		Status:     storage.StatusUp,
		LatencyMs:  millis(elapsed),
		PacketLoss: 0,
		Detail:     map[string]any{"statusCode": resp.StatusCode},
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
