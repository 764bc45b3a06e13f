package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/morezero/intents-registry/pkg/intents"
)

const logPrefix = "dispatcher:dispatch"

// Directory is the read side of the intents registry the dispatcher serves.
type Directory interface {
	Entries(category, action string) []intents.IntentEntry
	Select(input *intents.SelectInput) (*intents.IntentEntry, error)
	SelectRef(category, action, ref string) (*intents.IntentEntry, error)
	Snapshot() []intents.IntentEntry
	Categories() []string
	Count() int
}

// Dispatcher routes COMMS requests to registry queries.
type Dispatcher struct {
	directory Directory
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(dir Directory) *Dispatcher {
	return &Dispatcher{directory: dir}
}

// Dispatch routes a request to the appropriate registry query and returns a response.
func (d *Dispatcher) Dispatch(ctx context.Context, req *IntentsRequest) *IntentsResponse {
	caller := "anonymous"
	if req.Ctx != nil && req.Ctx.UserID != "" {
		caller = req.Ctx.UserID
	}
	slog.Debug(fmt.Sprintf("%s - method=%s id=%s caller=%s", logPrefix, req.Method, req.ID, caller))

	if err := ctx.Err(); err != nil {
		return errorResponse(req.ID, "INTERNAL_ERROR", err.Error(), true)
	}

	switch req.Method {
	case "lookup":
		return d.handleLookup(req)
	case "select":
		return d.handleSelect(req)
	case "list":
		return d.handleList(req)
	case "health":
		return d.handleHealth(req)
	default:
		return &IntentsResponse{
			ID: req.ID,
			Ok: false,
			Error: &ErrorDetail{
				Code:      "METHOD_NOT_FOUND",
				Message:   fmt.Sprintf("Unknown method: %s", req.Method),
				Retryable: false,
			},
		}
	}
}

func (d *Dispatcher) handleLookup(req *IntentsRequest) *IntentsResponse {
	var input LookupParams
	if err := decodeParams(req.Params, &input); err != nil {
		return errorResponse(req.ID, intents.CodeInvalidArgument, "Failed to parse lookup params", false)
	}
	if input.Category == "" || input.Action == "" {
		return errorResponse(req.ID, intents.CodeInvalidArgument, "category and action are required", false)
	}

	entries := d.directory.Entries(input.Category, input.Action)
	result := &LookupResult{
		Category:  input.Category,
		Action:    input.Action,
		Providers: make(map[string]intents.ProviderInfo, len(entries)),
	}
	for i := range entries {
		result.Providers[entries[i].Key.ModuleIdentity] = entries[i].Info()
	}
	return &IntentsResponse{ID: req.ID, Ok: true, Result: result}
}

func (d *Dispatcher) handleSelect(req *IntentsRequest) *IntentsResponse {
	var params SelectParams
	if err := decodeParams(req.Params, &params); err != nil {
		return errorResponse(req.ID, intents.CodeInvalidArgument, "Failed to parse select params", false)
	}

	var entry *intents.IntentEntry
	var err error
	switch {
	case params.Ref == "":
		entry, err = d.directory.Select(&params.SelectInput)
	case params.Module != "" || params.Ver != "":
		return errorResponse(req.ID, intents.CodeInvalidArgument, "ref cannot be combined with module or ver", false)
	default:
		entry, err = d.directory.SelectRef(params.Category, params.Action, params.Ref)
	}
	if err != nil {
		return intentErrorToResponse(req.ID, err)
	}
	return &IntentsResponse{ID: req.ID, Ok: true, Result: entry.Info()}
}

func (d *Dispatcher) handleList(req *IntentsRequest) *IntentsResponse {
	var input ListParams
	if err := decodeParams(req.Params, &input); err != nil {
		return errorResponse(req.ID, intents.CodeInvalidArgument, "Failed to parse list params", false)
	}

	snapshot := d.directory.Snapshot()
	result := &ListResult{Intents: make([]intents.ProviderInfo, 0, len(snapshot))}
	for i := range snapshot {
		e := &snapshot[i]
		if input.Category != "" && e.Key.Category != input.Category {
			continue
		}
		if input.Action != "" && e.Key.Action != input.Action {
			continue
		}
		result.Intents = append(result.Intents, e.Info())
	}
	result.Total = len(result.Intents)
	return &IntentsResponse{ID: req.ID, Ok: true, Result: result}
}

func (d *Dispatcher) handleHealth(req *IntentsRequest) *IntentsResponse {
	return &IntentsResponse{ID: req.ID, Ok: true, Result: &HealthResult{
		Status:     "ok",
		Providers:  d.directory.Count(),
		Categories: len(d.directory.Categories()),
	}}
}

// --- helpers ---

// decodeParams treats missing params as an empty object.
func decodeParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func errorResponse(id, code, message string, retryable bool) *IntentsResponse {
	return &IntentsResponse{
		ID: id,
		Ok: false,
		Error: &ErrorDetail{
			Code:      code,
			Message:   message,
			Retryable: retryable,
		},
	}
}

func intentErrorToResponse(id string, err error) *IntentsResponse {
	var ie *intents.IntentError
	if errors.As(err, &ie) {
		return &IntentsResponse{
			ID: id,
			Ok: false,
			Error: &ErrorDetail{
				Code:      ie.Code,
				Message:   ie.Message,
				Details:   ie.Details,
				Retryable: ie.Code == "INTERNAL_ERROR",
			},
		}
	}
	return errorResponse(id, "INTERNAL_ERROR", err.Error(), true)
}
