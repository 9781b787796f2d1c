package domain

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one recorded message of a chat session.
type ConversationTurn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Domain    string    `json:"domain,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CompletionMessage is one message sent to the completion service.
type CompletionMessage struct {
	Role    Role
	Content string
}

// ChatRequest is the input of one orchestrated chat exchange.
type ChatRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
	Domain    string `json:"domain,omitempty"`
}

// ChatReply is the orchestrator result. Failures are reported in-band.
type ChatReply struct {
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
	Success   bool   `json:"success"`
}
