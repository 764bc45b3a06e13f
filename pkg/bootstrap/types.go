// Package bootstrap loads module descriptors from disk and applies them to an
// intents registry at startup.
package bootstrap

import (
	"fmt"
	"strings"

	"github.com/morezero/intents-registry/pkg/intents"
)

// DescriptorFileNames are the file names LoadDescriptors treats as module descriptors.
var DescriptorFileNames = []string{"meta.json", "meta.yaml", "meta.yml"}

// FailurePolicy decides what RegisterModules does when a module fails to register.
type FailurePolicy string

const (
	// SkipModule logs the failure and continues with the next module.
	SkipModule FailurePolicy = "skip"
	// FailFast stops at the first failing module and returns its error.
	FailFast FailurePolicy = "fail"
)

// ParseFailurePolicy maps a config value to a FailurePolicy. Empty means SkipModule.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", SkipModule:
		return SkipModule, nil
	case FailFast:
		return FailFast, nil
	default:
		return "", fmt.Errorf("%s - unknown module failure policy %q (want skip or fail)", logPrefix, s)
	}
}

// LoadedDescriptor is a module descriptor together with the file it came from.
type LoadedDescriptor struct {
	Path       string
	Descriptor *intents.ModuleDescriptor
}

// ModuleFailure reports one module that did not register cleanly.
type ModuleFailure struct {
	Path     string `json:"path,omitempty"`
	Identity string `json:"identity"`
	Code     string `json:"code,omitempty"`
	Error    string `json:"error"`
}

// RegisterReport summarizes a RegisterModules run.
type RegisterReport struct {
	Modules    int             `json:"modules"`
	Registered int             `json:"registered"`
	Intents    int             `json:"intents"`
	Failures   []ModuleFailure `json:"failures,omitempty"`
}

// OK reports whether every module registered without error.
func (r *RegisterReport) OK() bool {
	return len(r.Failures) == 0
}
