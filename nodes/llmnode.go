package nodes

import (
	"context"
	"fmt"

	"github.com/sicko7947/flowgraph"
	"github.com/sicko7947/flowgraph/llm"
)

// DataKeyLastResponse is where an LLM node records the model's answer
const DataKeyLastResponse = "last_response"

// LLMNode sends the conversation history to a model client and appends
// the assistant's reply to the state. It is tagged TagLLM, so it runs
// under the longer LLM timeout and the "llm" circuit breaker.
type LLMNode struct {
	id           string
	name         string
	client       llm.Client
	model        string
	systemPrompt string
	promptKey    string
}

// LLMOption configures an LLMNode
type LLMOption func(*LLMNode)

// WithModel overrides the client's default model
func WithModel(model string) LLMOption {
	return func(n *LLMNode) {
		n.model = model
	}
}

// WithSystemPrompt sets the system prompt sent with every request
func WithSystemPrompt(prompt string) LLMOption {
	return func(n *LLMNode) {
		n.systemPrompt = prompt
	}
}

// WithPromptKey makes the node read a user prompt from a data key and
// append it as a user message before generating
func WithPromptKey(key string) LLMOption {
	return func(n *LLMNode) {
		n.promptKey = key
	}
}

// NewLLM creates an LLM-backed node
func NewLLM(id, name string, client llm.Client, opts ...LLMOption) *LLMNode {
	n := &LLMNode{id: id, name: name, client: client}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var _ flowgraph.TaggedNode = (*LLMNode)(nil)

func (n *LLMNode) ID() string   { return n.id }
func (n *LLMNode) Name() string { return n.name }
func (n *LLMNode) Tag() string  { return flowgraph.TagLLM }

func (n *LLMNode) Execute(ctx context.Context, state flowgraph.WorkflowState) (flowgraph.NodeResult, error) {
	working := state
	if n.promptKey != "" {
		prompt, ok := flowgraph.StateValue[string](state, n.promptKey)
		if !ok {
			return nil, fmt.Errorf("prompt key %q missing from state data", n.promptKey)
		}
		working = working.WithMessage(flowgraph.NewMessage("user", prompt))
	}

	resp, err := n.client.Generate(ctx, llm.Request{
		Messages:     working.Messages,
		Model:        n.model,
		SystemPrompt: n.systemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	reply := flowgraph.NewMessage("assistant", resp.Content)
	if len(resp.ToolCalls) > 0 {
		reply = reply.WithToolCalls(resp.ToolCalls...)
	}
	out := working.
		WithMessage(reply).
		WithData(DataKeyLastResponse, resp.Content)
	return flowgraph.NewSuccess(n.id, out), nil
}

func (n *LLMNode) InputKeys() []string {
	if n.promptKey != "" {
		return []string{n.promptKey}
	}
	return nil
}

func (n *LLMNode) OutputKeys() []string { return []string{DataKeyLastResponse} }
