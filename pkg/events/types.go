// Package events defines event types and publisher interfaces for intent registration events.
package events

// IntentRegisteredEvent is emitted after a provider is stored in the intents directory.
type IntentRegisteredEvent struct {
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
	Timestamp      string `json:"timestamp"`
}
