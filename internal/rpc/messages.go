package rpc

// ChatTaskRequest is the top-level request for one chat turn.
type ChatTaskRequest struct {
	SessionID     string `json:"session_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Model         string `json:"model,omitempty"`
	Prompt        string `json:"prompt"`
}

// ChatEvent streams back progress from the daemon.
type ChatEvent struct {
	Type          string `json:"type"` // token|message|error|done
	SessionID     string `json:"session_id,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Token         string `json:"token,omitempty"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
	Done          bool   `json:"done,omitempty"`
	FinishReason  string `json:"finish_reason,omitempty"`
}

// ResetRequest clears a session's conversation history.
type ResetRequest struct {
	SessionID string `json:"session_id"`
}

// ResetResponse acknowledges a session reset.
type ResetResponse struct {
	SessionID string `json:"session_id"`
	OK        bool   `json:"ok"`
}

// ChatStreamRequest is the bidirectional stream payload for Connect RPC.
// The first message must carry the chat task; later messages can carry
// control signals.
type ChatStreamRequest struct {
	Chat          *ChatTaskRequest `json:"chat,omitempty"`
	Cancel        bool             `json:"cancel,omitempty"`
	SessionID     string           `json:"session_id,omitempty"`
	CorrelationID string           `json:"correlation_id,omitempty"`
}
