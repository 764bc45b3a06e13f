package db

import (
	"context"
	"fmt"
	"time"

	"github.com/morezero/intents-registry/pkg/events"
)

const mirrorLogPrefix = "db:mirror"

// ProviderStore is the write side of the mirror.
type ProviderStore interface {
	UpsertProvider(ctx context.Context, p *IntentProvider) (*IntentProvider, error)
}

// Mirror is an events.EventPublisher that writes every registration to Postgres.
type Mirror struct {
	store ProviderStore
}

// NewMirror creates a Mirror backed by store.
func NewMirror(store ProviderStore) *Mirror {
	return &Mirror{store: store}
}

// PublishRegistered upserts the provider carried by event.
func (m *Mirror) PublishRegistered(ctx context.Context, event *events.IntentRegisteredEvent) error {
	if _, err := m.store.UpsertProvider(ctx, ProviderFromEvent(event)); err != nil {
		return fmt.Errorf("%s - mirror %s/%s %s: %w", mirrorLogPrefix, event.Category, event.Action, event.ModuleIdentity, err)
	}
	return nil
}

// ProviderFromEvent maps a registration event to a provider row.
func ProviderFromEvent(e *events.IntentRegisteredEvent) *IntentProvider {
	p := &IntentProvider{
		Category:       e.Category,
		Action:         e.Action,
		ModuleIdentity: e.ModuleIdentity,
		ModuleID:       e.ModuleID,
		ModuleVersion:  e.ModuleVersion,
		ModuleURL:      e.ModuleURL,
		Type:           e.Type,
		ViewID:         nullable(e.ViewID),
		View:           nullable(e.View),
		Path:           nullable(e.Path),
		Method:         nullable(e.Method),
	}
	if ts, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
		p.RegisteredAt = ts
	}
	return p
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
