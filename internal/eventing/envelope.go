package eventing

import (
	"context"
	"encoding/json"
	"reflect"
	"time"
)

// Envelope wraps event payload with metadata for delivery outside the process.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id"`
	Payload       json.RawMessage `json:"payload"`
}

// BuildEnvelope constructs an envelope from an event and the request context.
func BuildEnvelope(ctx context.Context, event any) (Envelope, error) {
	if event == nil {
		return Envelope{}, ErrNilEvent
	}
	eventType := EventType(event)
	if eventType == "" {
		return Envelope{}, ErrInvalidEventType
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, err
	}

	occurredAt := extractTimeField(event, "OccurredAt")
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	eventID := NewEventID()
	correlationID := CorrelationIDFromContext(ctx)
	if correlationID == "" {
		correlationID = eventID
	}

	return Envelope{
		EventID:       eventID,
		EventType:     eventType,
		OccurredAt:    occurredAt.UTC(),
		CorrelationID: correlationID,
		Payload:       payload,
	}, nil
}

func extractTimeField(event any, name string) time.Time {
	value := reflect.ValueOf(event)
	for value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return time.Time{}
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return time.Time{}
	}
	field := value.FieldByName(name)
	if !field.IsValid() {
		return time.Time{}
	}
	if t, ok := field.Interface().(time.Time); ok {
		return t
	}
	return time.Time{}
}
