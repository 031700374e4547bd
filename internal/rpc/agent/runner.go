package agent

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	coreagent "github.com/planforge/planforge/internal/agent"
	"github.com/planforge/planforge/internal/rpc"
)

// Runner executes a chat turn and yields streamed events.
type Runner interface {
	Run(r *http.Request, req rpc.ChatTaskRequest) (<-chan rpc.ChatEvent, error)
}

// ChatRunner backs the transport handlers with a real agent.
type ChatRunner struct {
	agent  *coreagent.Agent
	logger *zap.Logger
}

// NewChatRunner wraps an agent for use by the rpc handlers.
func NewChatRunner(a *coreagent.Agent, logger *zap.Logger) *ChatRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatRunner{agent: a, logger: logger}
}

// Run streams one chat turn as events. Tokens arrive as they come off the
// provider stream; a terminal done or error event always follows.
func (c *ChatRunner) Run(r *http.Request, req rpc.ChatTaskRequest) (<-chan rpc.ChatEvent, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("prompt is required")
	}

	out := make(chan rpc.ChatEvent, 16)
	go func() {
		defer close(out)

		ctx := r.Context()
		out <- rpc.ChatEvent{
			Type:          "message",
			SessionID:     req.SessionID,
			CorrelationID: req.CorrelationID,
			Message:       "session started",
		}

		tokens, errs := c.agent.ChatStream(ctx, req.SessionID, req.Model, req.Prompt)
		for tok := range tokens {
			out <- rpc.ChatEvent{
				Type:          "token",
				SessionID:     req.SessionID,
				CorrelationID: req.CorrelationID,
				Token:         tok,
			}
		}
		if err := <-errs; err != nil {
			c.logger.Warn("chat stream failed",
				zap.String("session_id", req.SessionID), zap.Error(err))
			out <- rpc.ChatEvent{
				Type:          "error",
				SessionID:     req.SessionID,
				CorrelationID: req.CorrelationID,
				Error:         err.Error(),
			}
			return
		}

		out <- rpc.ChatEvent{
			Type:          "done",
			SessionID:     req.SessionID,
			CorrelationID: req.CorrelationID,
			Done:          true,
			FinishReason:  "stop",
		}
	}()
	return out, nil
}

// EchoRunner emits the prompt back word by word. It stands in for the real
// agent when no provider is configured.
type EchoRunner struct{}

func (EchoRunner) Run(_ *http.Request, req rpc.ChatTaskRequest) (<-chan rpc.ChatEvent, error) {
	out := make(chan rpc.ChatEvent, 16)
	go func() {
		defer close(out)
		out <- rpc.ChatEvent{
			Type:          "message",
			SessionID:     req.SessionID,
			CorrelationID: req.CorrelationID,
			Message:       "session started",
		}
		for _, w := range strings.Fields(req.Prompt) {
			out <- rpc.ChatEvent{
				Type:          "token",
				SessionID:     req.SessionID,
				CorrelationID: req.CorrelationID,
				Token:         w,
			}
		}
		out <- rpc.ChatEvent{
			Type:          "done",
			SessionID:     req.SessionID,
			CorrelationID: req.CorrelationID,
			Done:          true,
			FinishReason:  "stop",
		}
	}()
	return out, nil
}
