package channels

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// WebhookClient issues outbound HTTP calls to operator-configured URLs
type WebhookClient struct {
	client *resty.Client
}

// Ensure WebhookClient implements WebhookCaller
var _ WebhookCaller = (*WebhookClient)(nil)

// NewWebhookClient creates a webhook caller
func NewWebhookClient() *WebhookClient {
	return &WebhookClient{
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// CallWebhook sends body to rawURL with the configured method and headers.
// Any non-2xx response or transport failure is returned as an error; retry
// policy belongs to the caller's delivery queue, not here.
func (w *WebhookClient) CallWebhook(ctx context.Context, method, rawURL string, headers map[string]string, body string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported webhook URL scheme %q", parsed.Scheme)
	}

	if method == "" {
		method = "POST"
	}
	method = strings.ToUpper(method)

	req := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json")

	for name, value := range headers {
		req.SetHeader(name, value)
	}

	if body != "" {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, rawURL)
	if err != nil {
		return fmt.Errorf("webhook call failed: %w", err)
	}

	if !resp.IsSuccess() {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	logrus.WithFields(logrus.Fields{
		"method": method,
		"url":    rawURL,
		"status": resp.StatusCode(),
	}).Debug("Webhook delivered")

	return nil
}
