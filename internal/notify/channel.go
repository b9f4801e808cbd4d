package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"forsee-cloud/internal/eventing"
)

// Message is one rendered notification.
type Message struct {
	Content  string
	Envelope *eventing.Envelope
}

// Channel delivers rendered content.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

type webhookPayload struct {
	MsgType string             `json:"msgtype"`
	Text    webhookText        `json:"text"`
	Event   *eventing.Envelope `json:"event,omitempty"`
}

type webhookText struct {
	Content string `json:"content"`
}

// WebhookChannel sends notifications to a webhook endpoint.
type WebhookChannel struct {
	url    string
	client *http.Client
}

// WebhookOption configures the webhook channel.
type WebhookOption func(*WebhookChannel)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(ch *WebhookChannel) {
		if client != nil {
			ch.client = client
		}
	}
}

// NewWebhookChannel constructs a webhook channel.
func NewWebhookChannel(url string, opts ...WebhookOption) (*WebhookChannel, error) {
	if url == "" {
		return nil, errors.New("webhook channel: empty url")
	}
	channel := &WebhookChannel{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(channel)
	}
	return channel, nil
}

// Name implements Channel.
func (w *WebhookChannel) Name() string { return "webhook" }

// Send posts a chat-webhook compatible text payload with the event envelope attached.
func (w *WebhookChannel) Send(ctx context.Context, msg Message) error {
	if w == nil || w.url == "" {
		return errors.New("webhook channel: empty url")
	}
	body, err := json.Marshal(webhookPayload{
		MsgType: "text",
		Text:    webhookText{Content: msg.Content},
		Event:   msg.Envelope,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if msg.Envelope != nil {
		req.Header.Set("X-Correlation-ID", msg.Envelope.CorrelationID)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook channel: non-2xx response %d", resp.StatusCode)
	}
	return nil
}

// LogChannel writes notifications to a logger. Used when no webhook is configured.
type LogChannel struct {
	logger *log.Logger
}

// NewLogChannel constructs a log channel.
func NewLogChannel(logger *log.Logger) *LogChannel {
	if logger == nil {
		logger = log.Default()
	}
	return &LogChannel{logger: logger}
}

// Name implements Channel.
func (l *LogChannel) Name() string { return "log" }

// Send implements Channel.
func (l *LogChannel) Send(ctx context.Context, msg Message) error {
	_ = ctx
	l.logger.Printf("admin notification:\n%s", msg.Content)
	return nil
}
