package server

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/intents-registry/internal/config"
	"github.com/morezero/intents-registry/pkg/commsutil"
	"github.com/morezero/intents-registry/pkg/controller"
	"github.com/morezero/intents-registry/pkg/dispatcher"
	"github.com/morezero/intents-registry/pkg/events"
	"github.com/morezero/intents-registry/pkg/intents"
)

const e2eTestPrefix = "server:e2e_test"

// e2eEnv wires module bootstrap, the registry, NATS change events and the
// dispatcher subscription the same way Run does.
type e2eEnv struct {
	nc       *comms.Conn
	reg      *intents.Registry
	mu       sync.Mutex
	captured []*events.IntentRegisteredEvent
	granular chan *comms.Msg
}

func (e *e2eEnv) capturedEvents() []*events.IntentRegisteredEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*events.IntentRegisteredEvent(nil), e.captured...)
}

func setupE2E(t *testing.T) *e2eEnv {
	t.Helper()

	ns, err := commsserver.NewServer(&commsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		t.Fatalf("%s - failed to create NATS server: %v", e2eTestPrefix, err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatalf("%s - NATS server failed to start", e2eTestPrefix)
	}

	nc, err := commsutil.Connect(ns.ClientURL(), "intents-e2e")
	if err != nil {
		ns.Shutdown()
		t.Fatalf("%s - failed to connect: %v", e2eTestPrefix, err)
	}
	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	env := &e2eEnv{nc: nc, granular: make(chan *comms.Msg, 16)}
	if _, err := nc.ChanSubscribe(commsutil.SubjectRegisteredEvent+".>", env.granular); err != nil {
		t.Fatalf("%s - subscribe granular: %v", e2eTestPrefix, err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatalf("%s - flush: %v", e2eTestPrefix, err)
	}

	capture := events.NewCallbackPublisher(func(_ context.Context, e *events.IntentRegisteredEvent) error {
		env.mu.Lock()
		defer env.mu.Unlock()
		env.captured = append(env.captured, e)
		return nil
	})
	env.reg = intents.NewRegistry(intents.NewRegistryParams{
		Config: intents.Config{ServerRoot: "/srv"},
		Loader: controller.NewStaticLoader().
			Add("/srv/modules/log/controllers/logging.so", controller.Methods{"DoLogging": func() {}}),
		Publisher: events.NewMultiPublisher(events.NewCommsPublisher(nc, nil), capture),
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{ModulesDir: writeModules(t), ModuleFailurePolicy: "skip"}
	if _, err := LoadModules(ctx, cfg, env.reg); err != nil {
		t.Fatalf("%s - LoadModules: %v", e2eTestPrefix, err)
	}

	sub, err := dispatcher.Subscribe(ctx, dispatcher.SubscribeParams{
		Conn:           nc,
		Subject:        commsutil.SubjectIntents,
		Dispatcher:     dispatcher.NewDispatcher(env.reg),
		RequestTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("%s - Subscribe: %v", e2eTestPrefix, err)
	}
	t.Cleanup(func() { _ = sub.Unsubscribe() })
	return env
}

func (e *e2eEnv) request(t *testing.T, method, params string) *dispatcher.IntentsResponse {
	t.Helper()
	payload, err := json.Marshal(&dispatcher.IntentsRequest{
		ID:     "e2e-" + method,
		Method: method,
		Params: json.RawMessage(params),
	})
	if err != nil {
		t.Fatal(err)
	}
	msg, err := e.nc.Request(commsutil.SubjectIntents, payload, 5*time.Second)
	if err != nil {
		t.Fatalf("%s - request %s: %v", e2eTestPrefix, method, err)
	}
	var resp dispatcher.IntentsResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		t.Fatalf("%s - decode response: %v", e2eTestPrefix, err)
	}
	return &resp
}

func decodeResult(t *testing.T, resp *dispatcher.IntentsResponse, v interface{}) {
	t.Helper()
	if !resp.Ok {
		t.Fatalf("%s - response not ok: %+v", e2eTestPrefix, resp.Error)
	}
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("%s - decode result: %v", e2eTestPrefix, err)
	}
}

func TestE2E_LookupAfterBootstrap(t *testing.T) {
	env := setupE2E(t)

	var result dispatcher.LookupResult
	decodeResult(t, env.request(t, "lookup", `{"category":"com.example.mail","action":"SEND_MAIL"}`), &result)

	info, ok := result.Providers["mail-1.0.0"]
	if !ok || len(result.Providers) != 1 {
		t.Fatalf("%s - providers = %+v", e2eTestPrefix, result.Providers)
	}
	if info.Type != "view" || info.ViewID != "compose" || info.View != "/htdocs/compose.html" {
		t.Errorf("%s - provider = %+v", e2eTestPrefix, info)
	}
}

func TestE2E_SelectServerProvider(t *testing.T) {
	env := setupE2E(t)

	var info intents.ProviderInfo
	decodeResult(t, env.request(t, "select", `{"category":"com.example.log","action":"DO_LOG"}`), &info)
	if info.Path != "/srv/modules/log/controllers/logging.so" || info.Method != "DoLogging" {
		t.Errorf("%s - provider = %+v", e2eTestPrefix, info)
	}
}

func TestE2E_Health(t *testing.T) {
	env := setupE2E(t)

	var health dispatcher.HealthResult
	decodeResult(t, env.request(t, "health", `{}`), &health)
	if health.Providers != 2 || health.Categories != 2 {
		t.Errorf("%s - health = %+v", e2eTestPrefix, health)
	}
}

func TestE2E_RegistrationEvents(t *testing.T) {
	env := setupE2E(t)

	if got := env.capturedEvents(); len(got) != 2 {
		t.Fatalf("%s - captured %d events, want 2", e2eTestPrefix, len(got))
	}

	subjects := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case msg := <-env.granular:
			subjects[msg.Subject] = true
		case <-time.After(5 * time.Second):
			t.Fatalf("%s - timed out waiting for event %d", e2eTestPrefix, i+1)
		}
	}
	for _, want := range []string{
		commsutil.BuildRegisteredSubject("com.example.mail", "SEND_MAIL"),
		commsutil.BuildRegisteredSubject("com.example.log", "DO_LOG"),
	} {
		if !subjects[want] {
			t.Errorf("%s - missing event on %s (got %v)", e2eTestPrefix, want, subjects)
		}
	}
}
