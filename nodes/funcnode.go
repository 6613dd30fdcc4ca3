package nodes

import (
	"context"

	"github.com/sicko7947/flowgraph"
)

// StateFunc is the body of a FuncNode: take a snapshot, return the next
// one. An error is reported as the node's failure.
type StateFunc func(ctx context.Context, state flowgraph.WorkflowState) (flowgraph.WorkflowState, error)

// FuncNode adapts a plain function into a Node
type FuncNode struct {
	id         string
	name       string
	fn         StateFunc
	inputKeys  []string
	outputKeys []string
	tag        string
}

// FuncOption configures a FuncNode
type FuncOption func(*FuncNode)

// WithInputKeys declares the data keys the node reads (advisory)
func WithInputKeys(keys ...string) FuncOption {
	return func(n *FuncNode) {
		n.inputKeys = keys
	}
}

// WithOutputKeys declares the data keys the node writes (advisory)
func WithOutputKeys(keys ...string) FuncOption {
	return func(n *FuncNode) {
		n.outputKeys = keys
	}
}

// WithTag sets the node's behavioural tag
func WithTag(tag string) FuncOption {
	return func(n *FuncNode) {
		n.tag = tag
	}
}

// NewFunc creates a function-backed node
func NewFunc(id, name string, fn StateFunc, opts ...FuncOption) *FuncNode {
	n := &FuncNode{id: id, name: name, fn: fn}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var _ flowgraph.TaggedNode = (*FuncNode)(nil)

func (n *FuncNode) ID() string   { return n.id }
func (n *FuncNode) Name() string { return n.name }
func (n *FuncNode) Tag() string  { return n.tag }

func (n *FuncNode) Execute(ctx context.Context, state flowgraph.WorkflowState) (flowgraph.NodeResult, error) {
	out, err := n.fn(ctx, state)
	if err != nil {
		return nil, err
	}
	return flowgraph.NewSuccess(n.id, out), nil
}

func (n *FuncNode) InputKeys() []string  { return n.inputKeys }
func (n *FuncNode) OutputKeys() []string { return n.outputKeys }
