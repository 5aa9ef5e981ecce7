package bus

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"orderdag/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

const _defaultWebhookTimeout = 10 * time.Second

type webhookBody struct {
	Text string `json:"text"`
}

// WebhookSink posts notifications to a Slack-style incoming webhook.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a sink posting to url. A nil client gets a default
// one with a request timeout.
func NewWebhookSink(url string, client *http.Client) *WebhookSink {
	if client == nil {
		client = &http.Client{Timeout: _defaultWebhookTimeout}
	}
	return &WebhookSink{url: url, client: client}
}

// Deliver implements Sink. Any non-2xx response is a delivery failure.
func (s *WebhookSink) Deliver(ctx context.Context, n Notification) error {
	if s.url == "" {
		return errors.Wrap(exception.ErrDeliveryFailed, "empty webhook url")
	}

	payload, err := sonic.ConfigFastest.Marshal(webhookBody{Text: formatText(n)})
	if err != nil {
		return errors.Wrap(err, "marshal webhook body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "new webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "post webhook")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Wrapf(exception.ErrDeliveryFailed, "status code: %d", resp.StatusCode)
	}
	return nil
}

func formatText(n Notification) string {
	if n.Category == "" {
		return n.Text
	}
	return "[" + n.Category + "] " + n.Text
}
