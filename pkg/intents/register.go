package intents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/intents-registry/pkg/events"
)

const registerLogPrefix = "intents:register"

// RegisterIntents registers every intent declared by md, in declaration order.
// A descriptor without intents is a no-op. The first failure stops the loop;
// intents registered before it stay registered.
func (r *Registry) RegisterIntents(ctx context.Context, md *ModuleDescriptor) error {
	if md == nil {
		return NewIntentError(CodeInvalidDescriptor, "module descriptor is nil")
	}
	if len(md.Intents) == 0 {
		slog.Debug(fmt.Sprintf("%s - module %s declares no intents", registerLogPrefix, md.Identity()))
		return nil
	}

	slog.Info(fmt.Sprintf("%s - module=%s intents=%d", registerLogPrefix, md.Identity(), len(md.Intents)))

	for i, decl := range md.Intents {
		if err := r.RegisterIntent(ctx, md, decl); err != nil {
			return fmt.Errorf("%s - module %s intent #%d (%s/%s): %w",
				registerLogPrefix, md.Identity(), i, decl.Category, decl.Action, err)
		}
	}
	return nil
}

// RegisterIntent resolves one declaration of md and stores it under
// (category, action, module identity). A key that is already taken is an
// error; the existing entry is left untouched.
func (r *Registry) RegisterIntent(ctx context.Context, md *ModuleDescriptor, decl IntentDeclaration) error {
	if md == nil {
		return NewIntentError(CodeInvalidDescriptor, "module descriptor is nil")
	}
	if decl.Category == "" || decl.Action == "" {
		return &IntentError{
			Code:    CodeInvalidDescriptor,
			Message: fmt.Sprintf("intent of module %s must declare category and action", md.Identity()),
		}
	}

	provider, err := r.resolve(md, decl)
	if err != nil {
		return err
	}

	entry := &IntentEntry{
		Key: IntentKey{
			Category:       decl.Category,
			Action:         decl.Action,
			ModuleIdentity: md.Identity(),
		},
		ModuleID:      md.ID,
		ModuleVersion: md.Version,
		ModuleURL:     md.URL,
		Context:       provider,
	}

	if err := r.insert(entry); err != nil {
		return err
	}

	slog.Debug(fmt.Sprintf("%s - registered %s/%s -> %s (%s)",
		registerLogPrefix, decl.Category, decl.Action, entry.Key.ModuleIdentity, decl.Type))

	r.publish(ctx, entry)
	return nil
}

func (r *Registry) resolve(md *ModuleDescriptor, decl IntentDeclaration) (ProviderContext, error) {
	switch decl.Type {
	case TypeView:
		view, err := ResolveView(md, decl)
		if err != nil {
			return ProviderContext{}, err
		}
		return ProviderContext{Type: TypeView, View: view}, nil
	case TypeServer:
		server, err := r.server.Resolve(md, decl)
		if err != nil {
			return ProviderContext{}, err
		}
		return ProviderContext{Type: TypeServer, Server: server}, nil
	default:
		return ProviderContext{}, &IntentError{
			Code:    CodeUnsupportedIntentType,
			Message: fmt.Sprintf("intent type %q is not supported", decl.Type),
		}
	}
}

// insert performs the duplicate check and the write under one lock.
func (r *Registry) insert(entry *IntentEntry) error {
	k := entry.Key

	r.mu.Lock()
	defer r.mu.Unlock()

	byAction, ok := r.intents[k.Category]
	if !ok {
		byAction = make(map[string]map[string]*IntentEntry)
		r.intents[k.Category] = byAction
	}
	byModule, ok := byAction[k.Action]
	if !ok {
		byModule = make(map[string]*IntentEntry)
		byAction[k.Action] = byModule
	}

	if _, exists := byModule[k.ModuleIdentity]; exists {
		return &IntentError{
			Code:    CodeDuplicateIntent,
			Message: fmt.Sprintf("intent %s/%s already registered by %s", k.Category, k.Action, k.ModuleIdentity),
		}
	}
	byModule[k.ModuleIdentity] = entry
	return nil
}

func (r *Registry) publish(ctx context.Context, entry *IntentEntry) {
	info := entry.Info()
	event := &events.IntentRegisteredEvent{
		Category:       info.Category,
		Action:         info.Action,
		ModuleID:       info.ModuleID,
		ModuleVersion:  info.ModuleVersion,
		ModuleIdentity: info.ModuleIdentity,
		ModuleURL:      info.ModuleURL,
		Type:           info.Type,
		ViewID:         info.ViewID,
		View:           info.View,
		Path:           info.Path,
		Method:         info.Method,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}
	if err := r.publisher.PublishRegistered(ctx, event); err != nil {
		slog.Error(fmt.Sprintf("%s - PublishRegistered failed: %v", registerLogPrefix, err))
	}
}
