package domain

import (
	"context"
	"encoding/json"
)

// Role is the author of a chat message.
type Role string

// Chat message roles understood by the completion provider.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a chat prompt.
type Message struct {
	Role    Role
	Content string
}

// StructuredOutput asks the provider to constrain its reply to a JSON schema.
type StructuredOutput struct {
	Name   string
	Schema json.Marshaler
	Strict bool
}

// CompletionRequest is a structured prompt. Output is free text unless Structured is set.
type CompletionRequest struct {
	Messages   []Message
	Structured *StructuredOutput
}

// Completion is the generated text plus token usage.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completer is the text-completion contract shared between layers.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// UserMessage is shorthand for a single user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// SystemMessage is shorthand for a system instruction message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}
