// Package mock provides a scripted llm.Provider test double.
package mock

import (
	"context"

	"github.com/planforge/planforge/internal/llm"
)

// Provider is a test double implementing llm.Provider.
type Provider struct {
	NameValue    string
	ChatFn       func(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error)
	StreamChunks []llm.StreamChunk
	StreamErr    error
}

func (p *Provider) Name() string {
	if p.NameValue != "" {
		return p.NameValue
	}
	return "mock"
}

func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	if p.ChatFn != nil {
		return p.ChatFn(ctx, req)
	}
	return llm.ChatResponse{Content: "mock", FinishReason: "stop"}, nil
}

func (p *Provider) Stream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, <-chan error) {
	ch := make(chan llm.StreamChunk, len(p.StreamChunks)+1)
	errCh := make(chan error, 1)
	go func() {
		defer close(ch)
		defer close(errCh)
		if len(p.StreamChunks) == 0 && p.StreamErr == nil && p.ChatFn != nil {
			resp, err := p.ChatFn(ctx, req)
			if err != nil {
				errCh <- err
				return
			}
			ch <- llm.StreamChunk{Content: resp.Content, FinishReason: resp.FinishReason}
			return
		}
		for _, c := range p.StreamChunks {
			ch <- c
		}
		if p.StreamErr != nil {
			errCh <- p.StreamErr
		}
	}()
	return ch, errCh
}
