package intents

import "errors"

// Error codes.
const (
	CodeViewNotFound          = "VIEW_NOT_FOUND"
	CodeControllerNotFound    = "CONTROLLER_NOT_FOUND"
	CodeMethodNotFound        = "METHOD_NOT_FOUND"
	CodeUnsupportedIntentType = "UNSUPPORTED_INTENT_TYPE"
	CodeDuplicateIntent       = "DUPLICATE_INTENT"
	CodeProviderNotFound      = "PROVIDER_NOT_FOUND"
	CodeInvalidDescriptor     = "INVALID_DESCRIPTOR"
	CodeInvalidArgument       = "INVALID_ARGUMENT"
)

// IntentError is a structured error from the intents registry.
type IntentError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

func (e *IntentError) Error() string {
	if e.cause != nil {
		return e.Code + ": " + e.Message + ": " + e.cause.Error()
	}
	return e.Code + ": " + e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *IntentError) Unwrap() error {
	return e.cause
}

// NewIntentError creates a new IntentError.
func NewIntentError(code, message string) *IntentError {
	return &IntentError{Code: code, Message: message}
}

// IsCode reports whether err carries an IntentError with the given code.
func IsCode(err error, code string) bool {
	var ie *IntentError
	return errors.As(err, &ie) && ie.Code == code
}

// CodeOf returns the IntentError code carried by err, or "" if none.
func CodeOf(err error) string {
	var ie *IntentError
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ""
}
