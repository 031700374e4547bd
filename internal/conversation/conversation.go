// Package conversation manages ordered chat message history with a bounded
// buffer that pins system messages across eviction.
package conversation

import (
	"encoding/json"
	"time"
)

// Role is the message role used in chat exchanges.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
	RoleTool      Role = "tool"
)

// FunctionCall is a legacy single-function invocation payload.
type FunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolCall describes a model-initiated tool invocation.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

// Message is a single entry in a conversation. Messages are treated as
// immutable once appended to a Buffer.
type Message struct {
	Role         Role          `json:"role"`
	Content      string        `json:"content"`
	Name         string        `json:"name,omitempty"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
	ToolCalls    []ToolCall    `json:"tool_calls,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// System builds a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content, CreatedAt: time.Now().UTC()}
}

// User builds a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content, CreatedAt: time.Now().UTC()}
}

// Assistant builds an assistant message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content, CreatedAt: time.Now().UTC()}
}

// WireFormat returns the provider-facing representation of the message.
// Role and content are always present; optional fields are omitted when absent.
func (m Message) WireFormat() map[string]any {
	out := map[string]any{
		"role":    string(m.Role),
		"content": m.Content,
	}
	if m.Name != "" {
		out["name"] = m.Name
	}
	if m.FunctionCall != nil {
		out["function_call"] = m.FunctionCall
	}
	if len(m.ToolCalls) > 0 {
		out["tool_calls"] = m.ToolCalls
	}
	return out
}

// Buffer is an ordered message log with an optional size bound. When a system
// prompt is configured it is synthesized as the first message and survives
// both eviction and Clear.
//
// Buffers are not safe for concurrent use; each chat session owns exactly one.
type Buffer struct {
	systemPrompt string
	maxMessages  int
	messages     []Message
}

// New creates a buffer. A non-empty systemPrompt synthesizes the initial
// system message. maxMessages <= 0 leaves the buffer unbounded.
func New(systemPrompt string, maxMessages int) *Buffer {
	b := &Buffer{systemPrompt: systemPrompt, maxMessages: maxMessages}
	if systemPrompt != "" {
		b.messages = append(b.messages, System(systemPrompt))
	}
	return b
}

// Append adds a message to the end of the buffer and enforces the size bound.
func (b *Buffer) Append(msg Message) {
	b.messages = append(b.messages, msg)
	b.evict()
}

// AppendSystem appends a system message with the given content.
func (b *Buffer) AppendSystem(content string) {
	b.Append(System(content))
}

// AppendUser appends a user message with the given content.
func (b *Buffer) AppendUser(content string) {
	b.Append(User(content))
}

// AppendAssistant appends an assistant message with the given content.
func (b *Buffer) AppendAssistant(content string) {
	b.Append(Assistant(content))
}

// Snapshot returns a defensive copy of the current messages.
func (b *Buffer) Snapshot() []Message {
	out := make([]Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// Len reports the number of buffered messages.
func (b *Buffer) Len() int {
	return len(b.messages)
}

// SystemPrompt returns the configured system prompt, if any.
func (b *Buffer) SystemPrompt() string {
	return b.systemPrompt
}

// Clear resets the buffer to the re-synthesized initial system message, or to
// empty when no system prompt was configured.
func (b *Buffer) Clear() {
	if b.systemPrompt != "" {
		b.messages = []Message{System(b.systemPrompt)}
		return
	}
	b.messages = nil
}

// WireFormat returns the provider-facing representation of all messages.
func (b *Buffer) WireFormat() []map[string]any {
	out := make([]map[string]any, 0, len(b.messages))
	for _, m := range b.messages {
		out = append(out, m.WireFormat())
	}
	return out
}

// evict enforces the size bound. System messages are always retained and sort
// first; the most recent non-system messages fill the remaining capacity.
// Once eviction triggers with system messages interleaved mid-conversation,
// the result diverges from strict chronological order. That is intentional:
// system directives stay pinned ahead of the rolling tail.
func (b *Buffer) evict() {
	if b.maxMessages <= 0 || len(b.messages) <= b.maxMessages {
		return
	}

	var system, rest []Message
	for _, m := range b.messages {
		if m.Role == RoleSystem {
			system = append(system, m)
		} else {
			rest = append(rest, m)
		}
	}

	keep := b.maxMessages - len(system)
	if keep > 0 {
		b.messages = append(system, rest[len(rest)-keep:]...)
		return
	}
	b.messages = system
}
