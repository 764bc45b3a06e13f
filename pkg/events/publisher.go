package events

import (
	"context"
	"errors"
)

// EventPublisher is the interface for publishing intent registration events.
type EventPublisher interface {
	PublishRegistered(ctx context.Context, event *IntentRegisteredEvent) error
}

// NoOpPublisher is an EventPublisher that does nothing (for in-process usage without events).
type NoOpPublisher struct{}

// PublishRegistered is a no-op.
func (p *NoOpPublisher) PublishRegistered(_ context.Context, _ *IntentRegisteredEvent) error {
	return nil
}

// CallbackPublisher is an EventPublisher that calls a callback function.
type CallbackPublisher struct {
	callback func(ctx context.Context, event *IntentRegisteredEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *IntentRegisteredEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishRegistered calls the callback.
func (p *CallbackPublisher) PublishRegistered(ctx context.Context, event *IntentRegisteredEvent) error {
	return p.callback(ctx, event)
}

// MultiPublisher fans an event out to several publishers.
// Every publisher is called even when an earlier one fails; the errors are joined.
type MultiPublisher struct {
	publishers []EventPublisher
}

// NewMultiPublisher creates a MultiPublisher, skipping nil entries.
func NewMultiPublisher(pubs ...EventPublisher) *MultiPublisher {
	m := &MultiPublisher{}
	for _, p := range pubs {
		if p != nil {
			m.publishers = append(m.publishers, p)
		}
	}
	return m
}

// Len returns the number of wrapped publishers.
func (m *MultiPublisher) Len() int {
	return len(m.publishers)
}

// PublishRegistered publishes to every wrapped publisher.
func (m *MultiPublisher) PublishRegistered(ctx context.Context, event *IntentRegisteredEvent) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.PublishRegistered(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
