// Package openai implements chat providers for the OpenAI API and
// OpenAI-compatible gateways, including Azure OpenAI deployments.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/planforge/planforge/internal/conversation"
	"github.com/planforge/planforge/internal/llm"
)

// Options configures provider construction beyond the common fields.
type Options struct {
	// Azure switches the provider to Azure OpenAI URL and auth conventions.
	Azure bool
	// APIVersion is the Azure api-version query parameter.
	APIVersion string
	// Deployment is the Azure deployment name used when the request model is empty.
	Deployment string
}

// Provider implements an OpenAI-compatible chat provider.
type Provider struct {
	name    string
	client  *http.Client
	baseURL string
	apiKey  string
	opts    Options
}

// NewProvider constructs a Provider with sane defaults.
func NewProvider(name, baseURL, apiKey string, timeout time.Duration, opts Options) *Provider {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if opts.Azure && opts.APIVersion == "" {
		opts.APIVersion = "2023-07-01-preview"
	}

	return &Provider{
		name:    name,
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		opts:    opts,
	}
}

// Name returns provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Chat executes a non-streaming chat completion.
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	model := p.resolveModel(req.Model)
	if model == "" {
		return llm.ChatResponse{}, fmt.Errorf("model is required")
	}

	res, err := p.send(ctx, req, model, false)
	if err != nil {
		return llm.ChatResponse{}, err
	}
	defer res.Body.Close()

	var resp chatResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return llm.ChatResponse{}, fmt.Errorf("decode response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return llm.ChatResponse{}, fmt.Errorf("%s: empty choices", p.name)
	}

	return llm.ChatResponse{
		Content:      resp.Choices[0].Message.Content,
		FinishReason: resp.Choices[0].FinishReason,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		ProviderName: p.name,
		Model:        model,
	}, nil
}

// Stream executes a streaming chat completion, decoding SSE events into
// incremental chunks. The channels are closed once the stream ends.
func (p *Provider) Stream(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamChunk, <-chan error) {
	ch := make(chan llm.StreamChunk)
	errCh := make(chan error, 1)

	go func() {
		defer close(ch)
		defer close(errCh)

		model := p.resolveModel(req.Model)
		if model == "" {
			errCh <- fmt.Errorf("model is required")
			return
		}

		res, err := p.send(ctx, req, model, true)
		if err != nil {
			errCh <- err
			return
		}
		defer res.Body.Close()

		scanner := bufio.NewScanner(res.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var evt streamEvent
			if err := json.Unmarshal([]byte(data), &evt); err != nil {
				errCh <- fmt.Errorf("decode stream event: %w", err)
				return
			}
			if len(evt.Choices) == 0 {
				continue
			}

			choice := evt.Choices[0]
			if choice.Delta.Content != "" || choice.FinishReason != "" {
				select {
				case ch <- llm.StreamChunk{Content: choice.Delta.Content, FinishReason: choice.FinishReason}:
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			errCh <- fmt.Errorf("read stream: %w", err)
		}
	}()

	return ch, errCh
}

func (p *Provider) resolveModel(model string) string {
	if model == "" && p.opts.Azure {
		return p.opts.Deployment
	}
	return model
}

func (p *Provider) send(ctx context.Context, req llm.ChatRequest, model string, stream bool) (*http.Response, error) {
	body := chatRequest{
		Messages:    toWireMessages(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
	// Azure routes the model through the deployment path segment instead.
	if !p.opts.Azure {
		body.Model = model
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(model), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		if p.opts.Azure {
			httpReq.Header.Set("api-key", p.apiKey)
		} else {
			httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
		}
	}

	res, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(res.Body)
		res.Body.Close()
		return nil, fmt.Errorf("%s: status %d: %s", p.name, res.StatusCode, string(b))
	}
	return res, nil
}

func (p *Provider) endpoint(model string) string {
	if p.opts.Azure {
		return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s", p.baseURL, model, p.opts.APIVersion)
	}
	return p.baseURL + "/v1/chat/completions"
}

type chatRequest struct {
	Model       string           `json:"model,omitempty"`
	Messages    []map[string]any `json:"messages"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	Stream      bool             `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Index        int    `json:"index"`
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type streamEvent struct {
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Delta        struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func toWireMessages(msgs []conversation.Message) []map[string]any {
	out := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.WireFormat())
	}
	return out
}
