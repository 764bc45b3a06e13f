package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/morezero/intents-registry/pkg/intents"
)

const registerLogPrefix = "bootstrap:register"

// IntentRegistrar is the part of the intents registry RegisterModules needs.
type IntentRegistrar interface {
	RegisterIntents(ctx context.Context, md *intents.ModuleDescriptor) error
}

// RegisterModules registers the intents of every descriptor in order.
// With FailFast the first failing module's error is returned along with the
// report so far. With SkipModule failures are collected in the report and the
// error is nil. A failing module keeps the intents it registered before the failure.
func RegisterModules(ctx context.Context, reg IntentRegistrar, descriptors []LoadedDescriptor, policy FailurePolicy) (*RegisterReport, error) {
	report := &RegisterReport{Modules: len(descriptors)}

	for _, ld := range descriptors {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("%s - %w", registerLogPrefix, err)
		}

		md := ld.Descriptor
		if err := reg.RegisterIntents(ctx, md); err != nil {
			failure := ModuleFailure{
				Path:  ld.Path,
				Code:  intents.CodeOf(err),
				Error: err.Error(),
			}
			if md != nil {
				failure.Identity = md.Identity()
			}
			report.Failures = append(report.Failures, failure)

			if policy == FailFast {
				return report, fmt.Errorf("%s - module %s: %w", registerLogPrefix, failure.Identity, err)
			}
			slog.Warn(fmt.Sprintf("%s - Skipping module %s: %v", registerLogPrefix, failure.Identity, err))
			continue
		}

		report.Registered++
		report.Intents += len(md.Intents)
	}

	slog.Info(fmt.Sprintf("%s - Registered %d/%d modules (%d intents, %d failures)",
		registerLogPrefix, report.Registered, report.Modules, report.Intents, len(report.Failures)))
	return report, nil
}

// Descriptors wraps in-memory descriptors for RegisterModules.
func Descriptors(mds ...*intents.ModuleDescriptor) []LoadedDescriptor {
	out := make([]LoadedDescriptor, 0, len(mds))
	for _, md := range mds {
		out = append(out, LoadedDescriptor{Descriptor: md})
	}
	return out
}
