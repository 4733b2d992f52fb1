// Package llm wraps the external reasoning service behind a narrow
// completion contract shared by every agent adapter.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sitesmith/sitesmith/internal/config"
)

// Message is one turn of a conversation with the reasoning service.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// Conversation role values.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a tool-invocation request returned by the service.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolDefinition describes a callable tool surfaced to the service.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Response is the service's reply: final content, or one or more tool
// invocation requests the caller must satisfy before asking again.
type Response struct {
	Content   string
	ToolCalls []ToolCall
}

// Client is the reasoning-service completion contract.
type Client interface {
	Complete(ctx context.Context, conversation []Message, tools []ToolDefinition) (Response, error)
}

// New constructs a client for the configured provider.
func New(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "mock":
		return NewMock(), nil
	case "deepseek", "openai":
		return NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// SystemMessage builds a system turn.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant turn.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolResultMessage builds a tool-result turn answering a tool call.
func ToolResultMessage(toolCallID, content string) Message {
	return Message{Role: RoleTool, ToolCallID: toolCallID, Content: content}
}
