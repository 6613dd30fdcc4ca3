// Package nodes provides the collaborator node library: passthrough
// and function nodes, LLM and tool nodes, and policy wrappers.
package nodes

import (
	"context"

	"github.com/sicko7947/flowgraph"
)

// Passthrough forwards the input state unchanged
type Passthrough struct {
	id   string
	name string
}

// NewPassthrough creates a passthrough node
func NewPassthrough(id, name string) *Passthrough {
	return &Passthrough{id: id, name: name}
}

var _ flowgraph.Node = (*Passthrough)(nil)

func (p *Passthrough) ID() string   { return p.id }
func (p *Passthrough) Name() string { return p.name }

func (p *Passthrough) Execute(_ context.Context, state flowgraph.WorkflowState) (flowgraph.NodeResult, error) {
	return flowgraph.NewSuccess(p.id, state), nil
}

func (p *Passthrough) InputKeys() []string  { return nil }
func (p *Passthrough) OutputKeys() []string { return nil }
