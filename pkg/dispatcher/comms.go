package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/intents-registry/pkg/commsutil"
)

const commsLogPrefix = "dispatcher:comms"

// SubscribeParams holds parameters for Subscribe.
type SubscribeParams struct {
	Conn       *comms.Conn
	Subject    string
	Dispatcher *Dispatcher
	// RequestTimeout bounds each request; a smaller caller timeoutMs wins.
	RequestTimeout time.Duration
}

// Subscribe answers intents requests on params.Subject until ctx is done or
// the returned subscription is unsubscribed.
func Subscribe(ctx context.Context, params SubscribeParams) (*comms.Subscription, error) {
	disp := params.Dispatcher
	requestTimeout := params.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 25 * time.Second
	}

	sub, err := params.Conn.Subscribe(params.Subject, func(msg *comms.Msg) {
		var req IntentsRequest
		if err := commsutil.DecodePayload(msg.Data, &req); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to decode request: %v", commsLogPrefix, err))
			respond(msg, &IntentsResponse{
				Ok: false,
				Error: &ErrorDetail{
					Code:    "INVALID_REQUEST",
					Message: "Failed to decode request",
				},
			})
			return
		}

		timeout := requestTimeout
		if req.Ctx != nil && req.Ctx.TimeoutMs > 0 {
			if d := time.Duration(req.Ctx.TimeoutMs) * time.Millisecond; d < timeout {
				timeout = d
			}
		}
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		respond(msg, disp.Dispatch(reqCtx, &req))
	})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to subscribe to %s: %w", commsLogPrefix, params.Subject, err)
	}

	slog.Info(fmt.Sprintf("%s - Subscribed to %s", commsLogPrefix, params.Subject))
	return sub, nil
}

func respond(msg *comms.Msg, resp *IntentsResponse) {
	data, err := commsutil.EncodePayload(resp)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode response: %v", commsLogPrefix, err))
		return
	}
	if err := msg.Respond(data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to respond: %v", commsLogPrefix, err))
	}
}
