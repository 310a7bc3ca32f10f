package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/abedinzadeh/dashmon.online/internal/config"
)

// SMSReceipt is the provider's acknowledgement of a queued message.
type SMSReceipt struct {
	Provider string `json:"provider"`
	ID       string `json:"id"`
	TestMode bool   `json:"test_mode"`
}

// SMSClient posts messages to the SMS provider's HTTP API. Test mode is a
// first-class delivery mode: it short-circuits before the network and
// returns a stub receipt, so tests and staging never reach the provider.
type SMSClient struct {
	cfg    config.SMSConfig
	client *http.Client
}

func NewSMSClient(cfg config.SMSConfig) *SMSClient {
	return &SMSClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *SMSClient) SendSMS(ctx context.Context, to, body string) (SMSReceipt, error) {
	if c.cfg.TestMode {
		return SMSReceipt{Provider: "test", ID: "test-" + uuid.NewString(), TestMode: true}, nil
	}
	if c.cfg.APIURL == "" {
		return SMSReceipt{}, ErrNotConfigured
	}

	payload, err := json.Marshal(map[string]string{
		"from": c.cfg.From,
		"to":   to,
		"body": body,
	})
	if err != nil {
		return SMSReceipt{}, fmt.Errorf("marshal sms: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(payload))
	if err != nil {
		return SMSReceipt{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return SMSReceipt{}, fmt.Errorf("sms request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, resp.Body)
		return SMSReceipt{}, fmt.Errorf("sms provider returned status %d", resp.StatusCode)
	}

	var receipt SMSReceipt
	if err := json.NewDecoder(resp.Body).Decode(&receipt); err != nil {
		return SMSReceipt{}, fmt.Errorf("decode sms receipt: %w", err)
	}
	return receipt, nil
}
