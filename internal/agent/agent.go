// Package agent orchestrates chat completions over per-session conversation
// history.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/planforge/planforge/internal/config"
	"github.com/planforge/planforge/internal/conversation"
	"github.com/planforge/planforge/internal/llm"
	"github.com/planforge/planforge/internal/observability"
)

// Agent drives chat calls against the model registry, maintaining one bounded
// conversation buffer per session.
type Agent struct {
	registry *llm.Registry
	cfg      config.AgentConfig
	metrics  *observability.Metrics

	mu       sync.Mutex
	sessions map[string]*conversation.Buffer
}

// New creates a new Agent.
func New(registry *llm.Registry, cfg config.AgentConfig) *Agent {
	return &Agent{
		registry: registry,
		cfg:      cfg,
		sessions: make(map[string]*conversation.Buffer),
	}
}

// SetMetrics attaches a metrics sink. A nil sink disables recording.
func (a *Agent) SetMetrics(m *observability.Metrics) {
	a.metrics = m
}

// Chat sends a user message within a session and returns the assistant reply.
// Provider failures are recorded in the conversation as an apologetic
// assistant message and returned alongside the error.
func (a *Agent) Chat(ctx context.Context, sessionID, text string) (string, error) {
	return a.chat(ctx, sessionID, "", text)
}

// ChatWithModel is Chat with a per-call logical model override.
func (a *Agent) ChatWithModel(ctx context.Context, sessionID, model, text string) (string, error) {
	return a.chat(ctx, sessionID, model, text)
}

func (a *Agent) chat(ctx context.Context, sessionID, model, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("message is required")
	}

	provider, route, err := a.registry.Resolve(model)
	if err != nil {
		return "", err
	}

	buf := a.session(sessionID)
	buf.AppendUser(text)

	start := time.Now()
	resp, err := provider.Chat(ctx, llm.ChatRequest{
		Model:       route.Model,
		Messages:    buf.Snapshot(),
		MaxTokens:   pickMaxTokens(a.cfg.MaxTokens, route.MaxTokens),
		Temperature: pickTemperature(a.cfg.Temperature, route.Temperature),
	})
	if err != nil {
		a.metrics.RecordChat(provider.Name(), "error", time.Since(start), 0, 0)
		failure := fmt.Sprintf("I encountered an error while processing your request: %v", err)
		buf.AppendAssistant(failure)
		return failure, err
	}

	a.metrics.RecordChat(provider.Name(), "ok", time.Since(start),
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	buf.AppendAssistant(resp.Content)
	return resp.Content, nil
}

// ChatStream sends a user message and yields the assistant reply
// incrementally. The full reply is appended to the conversation once the
// stream is exhausted.
func (a *Agent) ChatStream(ctx context.Context, sessionID, model, text string) (<-chan string, <-chan error) {
	out := make(chan string)
	errCh := make(chan error, 1)

	if strings.TrimSpace(text) == "" {
		close(out)
		errCh <- fmt.Errorf("message is required")
		close(errCh)
		return out, errCh
	}

	provider, route, err := a.registry.Resolve(model)
	if err != nil {
		close(out)
		errCh <- err
		close(errCh)
		return out, errCh
	}

	buf := a.session(sessionID)
	buf.AppendUser(text)

	chunks, streamErr := provider.Stream(ctx, llm.ChatRequest{
		Model:       route.Model,
		Messages:    buf.Snapshot(),
		MaxTokens:   pickMaxTokens(a.cfg.MaxTokens, route.MaxTokens),
		Temperature: pickTemperature(a.cfg.Temperature, route.Temperature),
		Stream:      true,
	})

	start := time.Now()
	go func() {
		defer close(out)
		defer close(errCh)

		var full strings.Builder
		for chunk := range chunks {
			if chunk.Content == "" {
				continue
			}
			full.WriteString(chunk.Content)
			select {
			case out <- chunk.Content:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		if err := <-streamErr; err != nil {
			a.metrics.RecordChat(provider.Name(), "error", time.Since(start), 0, 0)
			errCh <- err
			return
		}
		// Streaming responses carry no usage block.
		a.metrics.RecordChat(provider.Name(), "ok", time.Since(start), 0, 0)
		buf.AppendAssistant(full.String())
	}()

	return out, errCh
}

// ResetSession clears a session back to its system prompt.
func (a *Agent) ResetSession(sessionID string) {
	a.session(sessionID).Clear()
}

// AddContext appends contextual information to a session as a system message.
func (a *Agent) AddContext(sessionID, context string) {
	a.session(sessionID).AppendSystem("Context: " + context)
}

// History returns a copy of a session's messages.
func (a *Agent) History(sessionID string) []conversation.Message {
	return a.session(sessionID).Snapshot()
}

// SystemPrompt returns the configured agent system prompt.
func (a *Agent) SystemPrompt() string {
	return a.cfg.SystemPrompt
}

func (a *Agent) session(id string) *conversation.Buffer {
	a.mu.Lock()
	defer a.mu.Unlock()
	if buf, ok := a.sessions[id]; ok {
		return buf
	}
	buf := conversation.New(a.cfg.SystemPrompt, a.cfg.MaxHistory)
	a.sessions[id] = buf
	return buf
}

func pickMaxTokens(agentMax, routeMax int) int {
	if routeMax > 0 {
		return routeMax
	}
	return agentMax
}

func pickTemperature(agentTemp, routeTemp float64) float64 {
	if routeTemp > 0 {
		return routeTemp
	}
	return agentTemp
}
