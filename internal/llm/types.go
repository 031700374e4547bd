package llm

import (
	"context"

	"github.com/planforge/planforge/internal/conversation"
)

// ChatRequest is the input for chat providers.
type ChatRequest struct {
	Model       string
	Messages    []conversation.Message
	MaxTokens   int
	Temperature float64
	Stream      bool
}

// Usage captures token accounting.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatResponse is the result of a chat completion.
type ChatResponse struct {
	Content      string
	FinishReason string
	Usage        Usage
	ProviderName string
	Model        string
}

// StreamChunk is emitted during streaming responses. The concatenation of all
// chunk contents is the full completion text.
type StreamChunk struct {
	Content      string
	FinishReason string
}

// Provider defines the contract for LLM providers.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	Stream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, <-chan error)
}
