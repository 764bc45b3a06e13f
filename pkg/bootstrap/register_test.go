package bootstrap

import (
	"context"
	"testing"

	"github.com/morezero/intents-registry/pkg/controller"
	"github.com/morezero/intents-registry/pkg/intents"
)

func newRegistry() *intents.Registry {
	return intents.NewRegistry(intents.NewRegistryParams{
		Config: intents.Config{ServerRoot: "/srv"},
		Loader: controller.NewStaticLoader(),
	})
}

func mailModule(version string) *intents.ModuleDescriptor {
	return &intents.ModuleDescriptor{
		ID:      "mail",
		Version: version,
		URL:     "/modules/mail",
		Views:   []intents.View{{ViewID: "compose", View: "/htdocs/compose.html"}},
		Intents: []intents.IntentDeclaration{{
			Category: "com.example.mail",
			Action:   "SEND_MAIL",
			Type:     intents.TypeView,
			Provider: "compose",
		}},
	}
}

// brokenModule registers one intent, then fails on a missing view.
func brokenModule() *intents.ModuleDescriptor {
	md := mailModule("9.9.9")
	md.ID = "broken"
	md.Intents = append(md.Intents, intents.IntentDeclaration{
		Category: "com.example.mail",
		Action:   "READ_MAIL",
		Type:     intents.TypeView,
		Provider: "inbox",
	})
	return md
}

func TestRegisterModules_SkipModule(t *testing.T) {
	reg := newRegistry()
	descs := Descriptors(mailModule("1.0.0"), brokenModule(), mailModule("2.0.0"))

	report, err := RegisterModules(context.Background(), reg, descs, SkipModule)
	if err != nil {
		t.Fatalf("bootstrap:register_test - unexpected error: %v", err)
	}
	if report.Modules != 3 || report.Registered != 2 {
		t.Errorf("bootstrap:register_test - report = %+v", report)
	}
	if report.OK() || len(report.Failures) != 1 {
		t.Fatalf("bootstrap:register_test - expected 1 failure, got %+v", report.Failures)
	}
	f := report.Failures[0]
	if f.Identity != "broken-9.9.9" || f.Code != intents.CodeViewNotFound {
		t.Errorf("bootstrap:register_test - failure = %+v", f)
	}

	// 1.0.0, 2.0.0 and the first intent of the broken module.
	if got := len(reg.Lookup("com.example.mail", "SEND_MAIL")); got != 3 {
		t.Errorf("bootstrap:register_test - SEND_MAIL providers = %d, want 3", got)
	}
	if reg.Lookup("com.example.mail", "READ_MAIL") != nil {
		t.Errorf("bootstrap:register_test - failed intent must not be registered")
	}
}

func TestRegisterModules_FailFast(t *testing.T) {
	reg := newRegistry()
	descs := Descriptors(mailModule("1.0.0"), brokenModule(), mailModule("2.0.0"))

	report, err := RegisterModules(context.Background(), reg, descs, FailFast)
	if !intents.IsCode(err, intents.CodeViewNotFound) {
		t.Fatalf("bootstrap:register_test - expected %s, got %v", intents.CodeViewNotFound, err)
	}
	if report.Registered != 1 {
		t.Errorf("bootstrap:register_test - Registered = %d, want 1", report.Registered)
	}
	if _, ok := reg.Lookup("com.example.mail", "SEND_MAIL")["mail-2.0.0"]; ok {
		t.Errorf("bootstrap:register_test - modules after the failure must not be registered")
	}
}

func TestRegisterModules_Duplicate(t *testing.T) {
	reg := newRegistry()
	descs := Descriptors(mailModule("1.0.0"), mailModule("1.0.0"))

	report, err := RegisterModules(context.Background(), reg, descs, SkipModule)
	if err != nil {
		t.Fatalf("bootstrap:register_test - unexpected error: %v", err)
	}
	if len(report.Failures) != 1 || report.Failures[0].Code != intents.CodeDuplicateIntent {
		t.Errorf("bootstrap:register_test - failures = %+v", report.Failures)
	}
}

func TestRegisterModules_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := RegisterModules(ctx, newRegistry(), Descriptors(mailModule("1.0.0")), SkipModule)
	if err == nil {
		t.Fatal("bootstrap:register_test - expected context error")
	}
	if report.Registered != 0 {
		t.Errorf("bootstrap:register_test - Registered = %d, want 0", report.Registered)
	}
}

func TestRegisterModules_Empty(t *testing.T) {
	report, err := RegisterModules(context.Background(), newRegistry(), nil, FailFast)
	if err != nil || !report.OK() || report.Modules != 0 {
		t.Errorf("bootstrap:register_test - report = %+v, err = %v", report, err)
	}
}
