package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MultiChannel fans a message out to several channels.
type MultiChannel struct {
	channels []Channel
}

// NewMultiChannel constructs a MultiChannel, skipping nil channels.
func NewMultiChannel(channels ...Channel) *MultiChannel {
	m := &MultiChannel{}
	for _, ch := range channels {
		if ch != nil {
			m.channels = append(m.channels, ch)
		}
	}
	return m
}

// Name implements Channel.
func (m *MultiChannel) Name() string {
	names := make([]string, 0, len(m.channels))
	for _, ch := range m.channels {
		names = append(names, ch.Name())
	}
	return strings.Join(names, "+")
}

// Send forwards the message to every channel and joins their errors.
func (m *MultiChannel) Send(ctx context.Context, msg Message) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, ch := range m.channels {
		if err := ch.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
		}
	}
	return errors.Join(errs...)
}
