// Package notify posts deployment stage events to an operator webhook.
// Delivery is fire-and-forget: a failed notification is logged and never
// blocks or fails the pipeline.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// =============================================================================
// Notifier Interface
// =============================================================================

// Event is one pipeline stage notification.
type Event struct {
	Channel string `json:"channel"`
	Color   string `json:"color"`
	Message string `json:"message"`
	Status  string `json:"status"` // "started", "success", "failure"
}

// Notifier delivers stage events to the operator channel.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// =============================================================================
// Webhook Notifier
// =============================================================================

// WebhookNotifier posts events as JSON to a webhook URL.
type WebhookNotifier struct {
	url        string
	channel    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Config holds webhook notifier configuration.
type Config struct {
	URL     string
	Channel string        // default channel stamped on events
	Timeout time.Duration // Default: 10 seconds
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(cfg Config, logger *slog.Logger) *WebhookNotifier {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookNotifier{
		url:     cfg.URL,
		channel: cfg.Channel,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With("component", "notify"),
	}
}

// Notify posts the event. Errors are logged, never returned.
func (n *WebhookNotifier) Notify(ctx context.Context, event Event) {
	if event.Channel == "" {
		event.Channel = n.channel
	}

	body, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("failed to marshal notification", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("failed to create notification request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Warn("failed to deliver notification", "error", err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		n.logger.Warn("notification webhook returned error",
			"status_code", resp.StatusCode,
			"status", event.Status,
		)
	}
}

// =============================================================================
// No-Op Notifier
// =============================================================================

// NoopNotifier discards all events (no webhook configured).
type NoopNotifier struct{}

// NewNoopNotifier creates a notifier that does nothing.
func NewNoopNotifier() *NoopNotifier {
	return &NoopNotifier{}
}

// Notify does nothing.
func (n *NoopNotifier) Notify(ctx context.Context, event Event) {}
