// Package intents implements the intents registry: a process-wide directory that
// maps a (category, action) pair to the modules providing it, each provider
// resolved to either a module view or a server controller method.
package intents

import "github.com/morezero/intents-registry/pkg/semver"

// IntentType selects the resolver used for an intent declaration.
type IntentType string

// Supported intent types.
const (
	TypeView   IntentType = "view"
	TypeServer IntentType = "server"
)

// View is a named view declared by a module.
type View struct {
	ViewID string `json:"viewid" yaml:"viewid"`
	View   string `json:"view" yaml:"view"`
}

// IntentDeclaration binds a (category, action) pair to a provider inside a module.
type IntentDeclaration struct {
	Action   string     `json:"action" yaml:"action"`
	Category string     `json:"category" yaml:"category"`
	Type     IntentType `json:"type" yaml:"type"`
	// Provider is a viewid for view intents, or a controller path relative to
	// the module's controllers directory for server intents.
	Provider string `json:"provider" yaml:"provider"`
	// Method is the exported controller symbol for server intents.
	Method string `json:"method,omitempty" yaml:"method,omitempty"`
}

// ModuleDescriptor is the parsed descriptor of an installed module. The registry only reads it.
type ModuleDescriptor struct {
	ID      string              `json:"id" yaml:"id"`
	Version string              `json:"version" yaml:"version"`
	URL     string              `json:"url" yaml:"url"`
	Views   []View              `json:"views,omitempty" yaml:"views,omitempty"`
	Intents []IntentDeclaration `json:"intents,omitempty" yaml:"intents,omitempty"`
}

// Identity returns the module identity key: id + "-" + version.
func (m *ModuleDescriptor) Identity() string {
	return semver.ModuleIdentity(m.ID, m.Version)
}

// ViewRef is a resolved view provider. Module is a back-reference to the
// owning descriptor, not a copy.
type ViewRef struct {
	ViewID string
	View   string
	Module *ModuleDescriptor
}

// ServerRef is a resolved server provider: the absolute controller path and the method to call.
type ServerRef struct {
	Path   string
	Method string
}

// ProviderContext is the resolved provider of an intent. Exactly one of View
// or Server is set, according to Type.
type ProviderContext struct {
	Type   IntentType
	View   *ViewRef
	Server *ServerRef
}

// IntentKey is the composite key of a directory entry.
type IntentKey struct {
	Category       string
	Action         string
	ModuleIdentity string
}

// IntentEntry is one provider stored in the directory, with the module
// coordinates it was registered from.
type IntentEntry struct {
	Key           IntentKey
	ModuleID      string
	ModuleVersion string
	ModuleURL     string
	Context       ProviderContext
}

// ProviderInfo is the flat, serializable form of an IntentEntry.
type ProviderInfo struct {
	Category       string `json:"category"`
	Action         string `json:"action"`
	ModuleID       string `json:"moduleId"`
	ModuleVersion  string `json:"moduleVersion"`
	ModuleIdentity string `json:"moduleIdentity"`
	ModuleURL      string `json:"moduleUrl,omitempty"`
	Type           string `json:"type"`
	ViewID         string `json:"viewid,omitempty"`
	View           string `json:"view,omitempty"`
	Path           string `json:"path,omitempty"`
	Method         string `json:"method,omitempty"`
}

// Info flattens the entry for transport.
func (e *IntentEntry) Info() ProviderInfo {
	info := ProviderInfo{
		Category:       e.Key.Category,
		Action:         e.Key.Action,
		ModuleID:       e.ModuleID,
		ModuleVersion:  e.ModuleVersion,
		ModuleIdentity: e.Key.ModuleIdentity,
		ModuleURL:      e.ModuleURL,
		Type:           string(e.Context.Type),
	}
	if v := e.Context.View; v != nil {
		info.ViewID = v.ViewID
		info.View = v.View
	}
	if s := e.Context.Server; s != nil {
		info.Path = s.Path
		info.Method = s.Method
	}
	return info
}
