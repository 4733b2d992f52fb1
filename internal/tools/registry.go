// Package tools implements the capability tools the generator may invoke
// during a task: file writes, structured-record fetches, and web search.
// Each tool carries a JSON-schema definition surfaced to the reasoning
// service for function calling.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sitesmith/sitesmith/internal/llm"
)

// Tool is one callable capability.
type Tool interface {
	Definition() llm.ToolDefinition
	Invoke(ctx context.Context, args map[string]any) (any, error)
}

// Registry holds the enabled tools in registration order.
type Registry struct {
	tools  []Tool
	byName map[string]Tool
}

// NewRegistry builds a registry over the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools = append(r.tools, t)
		r.byName[t.Definition().Name] = t
	}
	return r
}

// Definitions returns the tool definitions in registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	out := make([]llm.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Definition())
	}
	return out
}

// Invoke dispatches one tool call and returns its JSON-encoded result, the
// shape handed back to the reasoning service as the tool turn.
func (r *Registry) Invoke(ctx context.Context, call llm.ToolCall) (string, error) {
	tool, ok := r.byName[call.Name]
	if !ok {
		return "", fmt.Errorf("unknown tool %q", call.Name)
	}
	var args map[string]any
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			return "", fmt.Errorf("decode %s arguments: %w", call.Name, err)
		}
	}
	result, err := tool.Invoke(ctx, args)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode %s result: %w", call.Name, err)
	}
	return string(encoded), nil
}
