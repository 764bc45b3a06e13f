// Package dispatcher routes incoming COMMS messages to intents registry queries.
package dispatcher

import (
	"encoding/json"

	"github.com/morezero/intents-registry/pkg/intents"
)

// IntentsRequest is the JSON envelope for incoming COMMS intents requests.
type IntentsRequest struct {
	ID     string             `json:"id"`
	Method string             `json:"method"`
	Params json.RawMessage    `json:"params"`
	Ctx    *InvocationContext `json:"ctx,omitempty"`
}

// IntentsResponse is the JSON envelope for COMMS intents responses.
type IntentsResponse struct {
	ID     string       `json:"id"`
	Ok     bool         `json:"ok"`
	Result interface{}  `json:"result,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail holds structured error information.
type ErrorDetail struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Retryable bool        `json:"retryable"`
}

// InvocationContext holds context from the caller.
type InvocationContext struct {
	TenantID      string `json:"tenantId,omitempty"`
	UserID        string `json:"userId,omitempty"`
	RequestID     string `json:"requestId,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
	TimeoutMs     int    `json:"timeoutMs,omitempty"`
}

// LookupParams are the params of the lookup method.
type LookupParams struct {
	Category string `json:"category"`
	Action   string `json:"action"`
}

// LookupResult lists every provider of an intent, keyed by module identity.
type LookupResult struct {
	Category  string                          `json:"category"`
	Action    string                          `json:"action"`
	Providers map[string]intents.ProviderInfo `json:"providers"`
}

// SelectParams are the params of the select method. Ref is a provider
// reference such as "mail@^1" and replaces Module and Ver.
type SelectParams struct {
	intents.SelectInput
	Ref string `json:"ref,omitempty"`
}

// ListParams are the params of the list method. Empty fields match everything.
type ListParams struct {
	Category string `json:"category,omitempty"`
	Action   string `json:"action,omitempty"`
}

// ListResult is the result of the list method.
type ListResult struct {
	Intents []intents.ProviderInfo `json:"intents"`
	Total   int                    `json:"total"`
}

// HealthResult is the result of the health method.
type HealthResult struct {
	Status     string `json:"status"`
	Providers  int    `json:"providers"`
	Categories int    `json:"categories"`
}
