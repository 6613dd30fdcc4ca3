// Package llm defines the model client contract consumed by LLM nodes,
// plus an OpenAI-backed implementation.
package llm

import (
	"context"

	"github.com/sicko7947/flowgraph"
)

// ToolDefinition describes a tool offered to the model
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// Request is one generation request
type Request struct {
	Messages     []flowgraph.Message `json:"messages"`
	Model        string              `json:"model,omitempty"`
	Temperature  *float64            `json:"temperature,omitempty"`
	MaxTokens    *int                `json:"maxTokens,omitempty"`
	Tools        []ToolDefinition    `json:"tools,omitempty"`
	SystemPrompt string              `json:"systemPrompt,omitempty"`
}

// Response is the model's answer
type Response struct {
	Content      string               `json:"content"`
	Model        string               `json:"model,omitempty"`
	TokensUsed   int                  `json:"tokensUsed"`
	FinishReason string               `json:"finishReason,omitempty"`
	ToolCalls    []flowgraph.ToolCall `json:"toolCalls,omitempty"`
}

// Client generates completions. GenerateStreaming yields content
// chunks lazily; the channel closes when the stream ends, and a stream
// error surfaces as the channel closing early.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
	GenerateStreaming(ctx context.Context, req Request) (<-chan string, error)
}
