package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/rydeshare/perfmon/internal/monitoring/alerting"
)

// WebhookChannel POSTs alerts to a configured URL. Delivery is fire-and-
// forget: the HTTP call runs on its own goroutine, failures are logged and
// never retried, and the caller is never blocked on network I/O.
type WebhookChannel struct {
	url     string
	service string
	client  *http.Client
	timeout time.Duration
	// sent signals test code that an async delivery finished; nil in production
	sent chan error
}

func NewWebhookChannel(url, service string, timeout time.Duration) *WebhookChannel {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebhookChannel{
		url:     url,
		service: service,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

func (c *WebhookChannel) Kind() alerting.ChannelKind { return alerting.ChannelWebhook }

type webhookPayload struct {
	Alert     alerting.Alert `json:"alert"`
	Service   string         `json:"service"`
	Timestamp int64          `json:"timestamp"`
}

func (c *WebhookChannel) Deliver(alert alerting.Alert) error {
	if c.url == "" {
		return nil
	}
	go func() {
		err := c.send(alert)
		if err != nil {
			log.Error().Err(err).Str("alert_id", alert.ID).Str("webhook_url", c.url).Msg("webhook delivery failed")
		}
		if c.sent != nil {
			c.sent <- err
		}
	}()
	return nil
}

func (c *WebhookChannel) send(alert alerting.Alert) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	body, err := json.Marshal(webhookPayload{
		Alert:     alert,
		Service:   c.service,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(b))
	}
	return nil
}
