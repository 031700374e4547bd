package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/planforge/planforge/internal/conversation"
	"github.com/planforge/planforge/internal/llm"
)

func TestChatSendsRequestAndParsesResponse(t *testing.T) {
	t.Parallel()

	p := NewProvider("openai", "http://mock", "key", 5*time.Second, Options{})
	p.client = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			require.Equal(t, "/v1/chat/completions", r.URL.Path)
			require.Equal(t, "Bearer key", r.Header.Get("Authorization"))

			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)

			var reqBody map[string]any
			require.NoError(t, json.Unmarshal(body, &reqBody))
			require.Equal(t, "gpt-4o-mini", reqBody["model"])

			msgs, ok := reqBody["messages"].([]any)
			require.True(t, ok)
			require.Len(t, msgs, 1)

			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     make(http.Header),
				Body: io.NopCloser(strings.NewReader(`{
					"choices": [{
						"index": 0,
						"finish_reason": "stop",
						"message": {"role": "assistant", "content": "hello"}
					}],
					"usage": {"prompt_tokens": 1, "completion_tokens": 2, "total_tokens": 3}
				}`)),
			}, nil
		}),
	}

	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		Model:    "gpt-4o-mini",
		Messages: []conversation.Message{conversation.User("hi")},
	})
	require.NoError(t, err)
	require.Equal(t, "hello", resp.Content)
	require.Equal(t, "stop", resp.FinishReason)
	require.Equal(t, 3, resp.Usage.TotalTokens)
}

func TestChatAzureRoutesThroughDeployment(t *testing.T) {
	t.Parallel()

	p := NewProvider("azure", "https://example.openai.azure.com", "secret", 0, Options{
		Azure:      true,
		APIVersion: "2023-07-01-preview",
		Deployment: "gpt-35-turbo",
	})
	p.client = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			require.Equal(t, "/openai/deployments/gpt-35-turbo/chat/completions", r.URL.Path)
			require.Equal(t, "2023-07-01-preview", r.URL.Query().Get("api-version"))
			require.Equal(t, "secret", r.Header.Get("api-key"))
			require.Empty(t, r.Header.Get("Authorization"))

			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			var reqBody map[string]any
			require.NoError(t, json.Unmarshal(body, &reqBody))
			require.NotContains(t, reqBody, "model", "azure carries the model in the path")

			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     make(http.Header),
				Body: io.NopCloser(strings.NewReader(`{
					"choices": [{"finish_reason": "stop", "message": {"role": "assistant", "content": "azure says hi"}}],
					"usage": {"total_tokens": 2}
				}`)),
			}, nil
		}),
	}

	// Empty model falls back to the configured deployment.
	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		Messages: []conversation.Message{conversation.User("hi")},
	})
	require.NoError(t, err)
	require.Equal(t, "azure says hi", resp.Content)
}

func TestChatRejectsErrorStatusAndEmptyChoices(t *testing.T) {
	t.Parallel()

	p := NewProvider("openai", "http://mock", "", 0, Options{})
	p.client = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusTooManyRequests,
				Header:     make(http.Header),
				Body:       io.NopCloser(strings.NewReader(`{"error": "rate limited"}`)),
			}, nil
		}),
	}

	_, err := p.Chat(context.Background(), llm.ChatRequest{
		Model:    "gpt-4o-mini",
		Messages: []conversation.Message{conversation.User("hi")},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 429")

	p.client = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     make(http.Header),
				Body:       io.NopCloser(strings.NewReader(`{"choices": []}`)),
			}, nil
		}),
	}
	_, err = p.Chat(context.Background(), llm.ChatRequest{
		Model:    "gpt-4o-mini",
		Messages: []conversation.Message{conversation.User("hi")},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty choices")
}

func TestStreamDecodesSSEChunks(t *testing.T) {
	t.Parallel()

	sse := strings.Join([]string{
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
		``,
		`data: {"choices":[{"delta":{"content":"lo"}}]}`,
		``,
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		``,
		`data: [DONE]`,
		``,
	}, "\n")

	p := NewProvider("openai", "http://mock", "", 0, Options{})
	p.client = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			var reqBody map[string]any
			require.NoError(t, json.Unmarshal(body, &reqBody))
			require.Equal(t, true, reqBody["stream"])

			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     make(http.Header),
				Body:       io.NopCloser(strings.NewReader(sse)),
			}, nil
		}),
	}

	ch, errCh := p.Stream(context.Background(), llm.ChatRequest{
		Model:    "gpt-4o-mini",
		Messages: []conversation.Message{conversation.User("hi")},
	})

	var sb strings.Builder
	var finish string
	for chunk := range ch {
		sb.WriteString(chunk.Content)
		if chunk.FinishReason != "" {
			finish = chunk.FinishReason
		}
	}
	require.NoError(t, <-errCh)
	require.Equal(t, "Hello", sb.String())
	require.Equal(t, "stop", finish)
}

type roundTripFunc func(r *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
