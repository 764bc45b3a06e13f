package dispatcher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/intents-registry/pkg/commsutil"
)

const commsTestPrefix = "dispatcher:comms_integration_test"

func startTestServer(t *testing.T) *comms.Conn {
	t.Helper()

	ns, err := commsserver.NewServer(&commsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		t.Fatalf("%s - failed to create server: %v", commsTestPrefix, err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatalf("%s - server failed to start", commsTestPrefix)
	}

	nc, err := commsutil.Connect(ns.ClientURL(), "dispatcher-test")
	if err != nil {
		ns.Shutdown()
		t.Fatalf("%s - failed to connect: %v", commsTestPrefix, err)
	}

	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return nc
}

func request(t *testing.T, nc *comms.Conn, payload []byte) *IntentsResponse {
	t.Helper()
	msg, err := nc.Request(commsutil.SubjectIntents, payload, 5*time.Second)
	if err != nil {
		t.Fatalf("%s - request: %v", commsTestPrefix, err)
	}
	var resp IntentsResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		t.Fatalf("%s - decode response: %v", commsTestPrefix, err)
	}
	return &resp
}

func TestSubscribe_EndToEnd(t *testing.T) {
	nc := startTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := Subscribe(ctx, SubscribeParams{
		Conn:           nc,
		Subject:        commsutil.SubjectIntents,
		Dispatcher:     NewDispatcher(testRegistry(t)),
		RequestTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("%s - Subscribe: %v", commsTestPrefix, err)
	}
	defer sub.Unsubscribe()

	payload, _ := json.Marshal(&IntentsRequest{
		ID:     "e2e-1",
		Method: "select",
		Params: json.RawMessage(`{"category": "com.example.mail", "action": "SEND_MAIL", "module": "mail", "ver": "~1.0"}`),
		Ctx:    &InvocationContext{UserID: "tester", TimeoutMs: 1000},
	})
	resp := request(t, nc, payload)
	if !resp.Ok || resp.ID != "e2e-1" {
		t.Fatalf("%s - resp = %+v (error %+v)", commsTestPrefix, resp, resp.Error)
	}
	result := resp.Result.(map[string]interface{})
	if result["moduleIdentity"] != "mail-1.0.0" {
		t.Errorf("%s - selected %v, want mail-1.0.0", commsTestPrefix, result["moduleIdentity"])
	}

	payload, _ = json.Marshal(&IntentsRequest{ID: "e2e-2", Method: "select", Params: json.RawMessage(`{"category": "x", "action": "y"}`)})
	resp = request(t, nc, payload)
	if resp.Ok || resp.Error == nil || resp.Error.Code != "PROVIDER_NOT_FOUND" {
		t.Errorf("%s - expected PROVIDER_NOT_FOUND, got %+v", commsTestPrefix, resp.Error)
	}
}

func TestSubscribe_MalformedRequest(t *testing.T) {
	nc := startTestServer(t)

	sub, err := Subscribe(context.Background(), SubscribeParams{
		Conn:       nc,
		Subject:    commsutil.SubjectIntents,
		Dispatcher: NewDispatcher(testRegistry(t)),
	})
	if err != nil {
		t.Fatalf("%s - Subscribe: %v", commsTestPrefix, err)
	}
	defer sub.Unsubscribe()

	resp := request(t, nc, []byte("not json"))
	if resp.Ok || resp.Error == nil || resp.Error.Code != "INVALID_REQUEST" {
		t.Errorf("%s - expected INVALID_REQUEST, got %+v", commsTestPrefix, resp.Error)
	}
}
