package flowgraph

import "context"

// Node is an executable vertex of a graph. Execute receives the state
// snapshot the scheduler selected for it and must not mutate it; the
// output state travels back inside a Success result. A non-nil error is
// equivalent to returning a Failure.
type Node interface {
	ID() string
	Name() string
	Execute(ctx context.Context, state WorkflowState) (NodeResult, error)
	InputKeys() []string
	OutputKeys() []string
}

// TaggedNode lets a node advertise a behavioural tag to the executor.
// Nodes tagged TagLLM run under the longer LLM timeout, and the tag
// selects the circuit breaker applied to the node.
type TaggedNode interface {
	Node
	Tag() string
}

// TagLLM marks nodes that call a language model
const TagLLM = "llm"

// NodeTag returns the node's tag, or "" for untagged nodes
func NodeTag(n Node) string {
	if tagged, ok := n.(TaggedNode); ok {
		return tagged.Tag()
	}
	return ""
}
