package db

import "time"

// IntentProvider represents a row in the intent_providers table.
type IntentProvider struct {
	Category       string    `json:"category"`
	Action         string    `json:"action"`
	ModuleIdentity string    `json:"module_identity"`
	ModuleID       string    `json:"module_id"`
	ModuleVersion  string    `json:"module_version"`
	ModuleURL      string    `json:"module_url"`
	Type           string    `json:"type"`
	ViewID         *string   `json:"view_id,omitempty"`
	View           *string   `json:"view,omitempty"`
	Path           *string   `json:"path,omitempty"`
	Method         *string   `json:"method,omitempty"`
	RegisteredAt   time.Time `json:"registered_at"`
	Revision       int       `json:"revision"`
}

// ListProvidersParams filters ListProviders. Empty fields match everything.
type ListProvidersParams struct {
	Category string
	Action   string
	ModuleID string
	Limit    int
}
