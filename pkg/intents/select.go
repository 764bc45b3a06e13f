package intents

import (
	"fmt"
	"log/slog"

	"github.com/morezero/intents-registry/pkg/semver"
)

const selectLogPrefix = "intents:select"

// SelectInput holds parameters for Select.
type SelectInput struct {
	Category string `json:"category"`
	Action   string `json:"action"`
	// Module restricts candidates to one module id; empty means any module.
	Module string `json:"module,omitempty"`
	// Ver is a SemVer range over module versions; empty means any version.
	Ver string `json:"ver,omitempty"`
}

// Select picks one provider of (category, action): the highest module version
// satisfying the input's module and range filters.
func (r *Registry) Select(input *SelectInput) (*IntentEntry, error) {
	slog.Debug(fmt.Sprintf("%s - category=%s action=%s module=%s ver=%s",
		selectLogPrefix, input.Category, input.Action, input.Module, input.Ver))

	if input.Category == "" || input.Action == "" {
		return nil, NewIntentError(CodeInvalidArgument, "category and action are required")
	}

	entries := r.Entries(input.Category, input.Action)
	byIdentity := make(map[string]*IntentEntry, len(entries))
	records := make([]semver.VersionRecord, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		if input.Module != "" && e.ModuleID != input.Module {
			continue
		}
		byIdentity[e.Key.ModuleIdentity] = e
		records = append(records, semver.VersionRecord{
			Identity: e.Key.ModuleIdentity,
			ModuleID: e.ModuleID,
			Version:  e.ModuleVersion,
		})
	}

	best := semver.ResolveVersion(semver.ResolveVersionParams{
		Versions: records,
		Range:    input.Ver,
	})
	if best == nil {
		return nil, &IntentError{
			Code:    CodeProviderNotFound,
			Message: fmt.Sprintf("no provider for %s/%s matching %s", input.Category, input.Action, describeFilter(input)),
		}
	}
	return byIdentity[best.Identity], nil
}

// SelectRef is Select with module and range given as a provider reference
// such as "mail-module@^1.0".
func (r *Registry) SelectRef(category, action, ref string) (*IntentEntry, error) {
	parsed, err := semver.ParseProviderRef(ref)
	if err != nil {
		return nil, &IntentError{Code: CodeInvalidArgument, Message: err.Error()}
	}
	return r.Select(&SelectInput{
		Category: category,
		Action:   action,
		Module:   parsed.ModuleID,
		Ver:      parsed.Range,
	})
}

func describeFilter(input *SelectInput) string {
	module := input.Module
	if module == "" {
		module = "*"
	}
	ver := input.Ver
	if ver == "" {
		ver = "*"
	}
	return module + "@" + ver
}
