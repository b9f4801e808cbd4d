package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	access "forsee-cloud/internal/access/domain"
	"forsee-cloud/internal/eventing"
	"forsee-cloud/internal/observability/metrics"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// Notifier tells admins about new role requests.
type Notifier struct {
	channel        Channel
	template       *Template
	clock          Clock
	logger         *log.Logger
	reviewBaseURL  string
	requestTimeout time.Duration
	dedupeWindow   time.Duration

	mu   sync.Mutex
	sent map[string]time.Time
}

// Option configures the notifier.
type Option func(*Notifier)

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// WithLogger assigns a logger.
func WithLogger(logger *log.Logger) Option {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithRequestTimeout bounds each delivery.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(n *Notifier) {
		if timeout > 0 {
			n.requestTimeout = timeout
		}
	}
}

// WithDedupeWindow suppresses repeat notifications for the same request.
func WithDedupeWindow(window time.Duration) Option {
	return func(n *Notifier) {
		if window > 0 {
			n.dedupeWindow = window
		}
	}
}

// WithReviewBaseURL adds a review link built from base + request id.
func WithReviewBaseURL(base string) Option {
	return func(n *Notifier) {
		n.reviewBaseURL = strings.TrimRight(base, "/")
	}
}

// NewNotifier constructs a role request notifier.
func NewNotifier(channel Channel, template *Template, opts ...Option) (*Notifier, error) {
	if channel == nil {
		return nil, errors.New("notifier: nil channel")
	}
	if template == nil {
		defaultTemplate, err := NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	n := &Notifier{
		channel:        channel,
		template:       template,
		clock:          systemClock{},
		logger:         log.Default(),
		requestTimeout: 5 * time.Second,
		sent:           make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// HandleRoleRequested renders and delivers the admin notification.
// Delivery failures are logged and counted; they never fail the publisher.
func (n *Notifier) HandleRoleRequested(ctx context.Context, evt access.RoleRequested) error {
	if n == nil {
		return nil
	}
	if !n.shouldSend(evt.RequestID) {
		return nil
	}

	content, err := n.template.Render(n.templateData(evt))
	if err != nil {
		return fmt.Errorf("notifier: render: %w", err)
	}
	msg := Message{Content: content}
	if env, err := eventing.BuildEnvelope(ctx, evt); err == nil {
		msg.Envelope = &env
	}

	sendCtx := ctx
	if n.requestTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, n.requestTimeout)
		defer cancel()
	}
	if err := n.channel.Send(sendCtx, msg); err != nil {
		metrics.IncNotification(n.channel.Name(), metrics.ResultError)
		n.logger.Printf("role request notification failed: id=%s err=%v", evt.RequestID, err)
		return nil
	}
	metrics.IncNotification(n.channel.Name(), metrics.ResultSuccess)
	n.markSent(evt.RequestID)
	return nil
}

func (n *Notifier) templateData(evt access.RoleRequested) TemplateData {
	name := evt.UserName
	if name == "" {
		name = evt.Subject
	}
	at := evt.OccurredAt
	if at.IsZero() {
		at = n.clock.Now()
	}
	review := ""
	if n.reviewBaseURL != "" {
		review = n.reviewBaseURL + "/" + evt.RequestID
	}
	return TemplateData{
		RequestID:   evt.RequestID,
		Subject:     evt.Subject,
		UserName:    name,
		Role:        string(evt.Role),
		RequestedAt: at.UTC().Format(time.RFC3339),
		ReviewURL:   review,
	}
}

func (n *Notifier) shouldSend(requestID string) bool {
	if n.dedupeWindow <= 0 || requestID == "" {
		return true
	}
	now := n.clock.Now()
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, at := range n.sent {
		if now.Sub(at) >= n.dedupeWindow {
			delete(n.sent, id)
		}
	}
	_, ok := n.sent[requestID]
	return !ok
}

func (n *Notifier) markSent(requestID string) {
	if n.dedupeWindow <= 0 || requestID == "" {
		return
	}
	n.mu.Lock()
	n.sent[requestID] = n.clock.Now()
	n.mu.Unlock()
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
