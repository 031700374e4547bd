package agent

import (
	"context"
	"errors"
	"net/http"

	"github.com/bufbuild/connect-go"
	"github.com/google/uuid"

	"github.com/planforge/planforge/internal/observability"
	"github.com/planforge/planforge/internal/rpc"
	"github.com/planforge/planforge/internal/rpc/connectjson"
)

const ConnectChatProcedure = "/connect.agent.v1.AgentService/Chat"

// NewConnectHandler builds a Connect bidi stream handler for Chat.
func NewConnectHandler(runner Runner, metrics *observability.Metrics) (string, http.Handler) {
	h := &connectChatHandler{runner: runner, metrics: metrics}
	return ConnectChatProcedure, connect.NewBidiStreamHandler(ConnectChatProcedure, h.handle, connect.WithCodec(connectjson.Codec{}))
}

type connectChatHandler struct {
	runner  Runner
	metrics *observability.Metrics
}

func (h *connectChatHandler) handle(ctx context.Context, stream *connect.BidiStream[rpc.ChatStreamRequest, rpc.ChatEvent]) error {
	h.metrics.IncActiveSessions("connect")
	defer h.metrics.DecActiveSessions("connect")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	first, err := stream.Receive()
	if err != nil {
		h.metrics.RecordTransportError("connect", "receive_first")
		return err
	}
	if first == nil || first.Chat == nil {
		h.metrics.RecordTransportError("connect", "missing_chat")
		return connect.NewError(connect.CodeInvalidArgument, errors.New("first message must include chat payload"))
	}

	req := *first.Chat
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if req.CorrelationID == "" {
		req.CorrelationID = req.SessionID + "-corr"
	}

	// Listen for cancellation messages from the client.
	go func() {
		for {
			msg, recvErr := stream.Receive()
			if recvErr != nil {
				if !errors.Is(recvErr, context.Canceled) {
					h.metrics.RecordTransportError("connect", "receive_stream")
				}
				cancel()
				return
			}
			if msg != nil && msg.Cancel {
				cancel()
				return
			}
		}
	}()

	httpReq := &http.Request{}
	httpReq = httpReq.WithContext(ctx)

	events, runErr := h.runner.Run(httpReq, req)
	if runErr != nil {
		h.metrics.RecordTransportError("connect", "runner_error")
		return connect.NewError(connect.CodeInvalidArgument, runErr)
	}

	for ev := range events {
		if err := stream.Send(&ev); err != nil {
			h.metrics.RecordTransportError("connect", "send")
			return err
		}
	}
	return nil
}
