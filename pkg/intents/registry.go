package intents

import (
	"sort"
	"sync"

	"github.com/morezero/intents-registry/pkg/controller"
	"github.com/morezero/intents-registry/pkg/events"
)

// Config holds intents registry configuration.
type Config struct {
	// ServerRoot is the absolute base path that module URLs are mounted under.
	ServerRoot string
}

// NewRegistryParams holds parameters for NewRegistry.
type NewRegistryParams struct {
	Config    Config
	Loader    controller.Loader
	Publisher events.EventPublisher
}

// Registry is the intents directory: category -> action -> module identity -> entry.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	intents   map[string]map[string]map[string]*IntentEntry
	server    *ServerResolver
	publisher events.EventPublisher
}

// NewRegistry creates an empty Registry. A nil Loader defaults to a filesystem
// plugin loader; a nil Publisher defaults to a no-op publisher.
func NewRegistry(params NewRegistryParams) *Registry {
	loader := params.Loader
	if loader == nil {
		loader = controller.NewFSLoader()
	}

	pub := params.Publisher
	if pub == nil {
		pub = &events.NoOpPublisher{}
	}

	return &Registry{
		intents:   make(map[string]map[string]map[string]*IntentEntry),
		server:    NewServerResolver(params.Config.ServerRoot, loader),
		publisher: pub,
	}
}

// Lookup returns the providers of (category, action) keyed by module identity,
// or nil if none are registered. The returned map is a copy.
func (r *Registry) Lookup(category, action string) map[string]ProviderContext {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byModule, ok := r.intents[category][action]
	if !ok {
		return nil
	}
	out := make(map[string]ProviderContext, len(byModule))
	for identity, e := range byModule {
		out[identity] = e.Context
	}
	return out
}

// Entries returns the entries of (category, action) sorted by module identity.
func (r *Registry) Entries(category, action string) []IntentEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byModule := r.intents[category][action]
	out := make([]IntentEntry, 0, len(byModule))
	for _, e := range byModule {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.ModuleIdentity < out[j].Key.ModuleIdentity
	})
	return out
}

// Get returns the entry stored under key.
func (r *Registry) Get(key IntentKey) (IntentEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.intents[key.Category][key.Action][key.ModuleIdentity]
	if !ok {
		return IntentEntry{}, false
	}
	return *e, true
}

// Categories returns the registered categories, sorted.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.intents))
	for c := range r.intents {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Actions returns the registered actions of a category, sorted.
func (r *Registry) Actions(category string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byAction := r.intents[category]
	out := make([]string, 0, len(byAction))
	for a := range byAction {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of stored providers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, byAction := range r.intents {
		for _, byModule := range byAction {
			n += len(byModule)
		}
	}
	return n
}

// Snapshot returns every entry, sorted by category, action and module identity.
func (r *Registry) Snapshot() []IntentEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []IntentEntry
	for _, byAction := range r.intents {
		for _, byModule := range byAction {
			for _, e := range byModule {
				out = append(out, *e)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Key, out[j].Key
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Action != b.Action {
			return a.Action < b.Action
		}
		return a.ModuleIdentity < b.ModuleIdentity
	})
	return out
}
