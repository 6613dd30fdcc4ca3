package builder

import (
	"fmt"

	"github.com/sicko7947/flowgraph"
)

// GraphBuilder provides a fluent API for assembling a GraphDefinition.
// Argument-level problems (empty ids, duplicate nodes) are recorded on
// each call; structural validation runs in Build. A failed build
// reports every collected problem at once.
type GraphBuilder struct {
	graph *flowgraph.GraphDefinition
	errs  []string
}

// Branch describes one target of a Fork with its optional label and
// predicate
type Branch struct {
	Target    string
	Label     string
	Predicate flowgraph.Predicate
}

// NewGraph creates a new graph builder
func NewGraph(id, name string) *GraphBuilder {
	b := &GraphBuilder{graph: flowgraph.NewGraphDefinition(id, name)}
	if id == "" {
		b.errs = append(b.errs, "graph id must not be empty")
	}
	return b
}

// AddNode registers a node
func (b *GraphBuilder) AddNode(n flowgraph.Node) *GraphBuilder {
	if n == nil {
		b.errs = append(b.errs, "node must not be nil")
		return b
	}
	if err := b.graph.AddNode(n); err != nil {
		b.errs = append(b.errs, err.Error())
	}
	return b
}

// AddNodes registers several nodes in order
func (b *GraphBuilder) AddNodes(nodes ...flowgraph.Node) *GraphBuilder {
	for _, n := range nodes {
		b.AddNode(n)
	}
	return b
}

// AddEdge links source to target unconditionally
func (b *GraphBuilder) AddEdge(source, target string) *GraphBuilder {
	return b.addEdge(flowgraph.Edge{Source: source, Target: target})
}

// AddConditionalEdge links source to target behind a predicate
func (b *GraphBuilder) AddConditionalEdge(source, target, label string, predicate flowgraph.Predicate) *GraphBuilder {
	return b.addEdge(flowgraph.Edge{Source: source, Target: target, Label: label, Predicate: predicate})
}

func (b *GraphBuilder) addEdge(edge flowgraph.Edge) *GraphBuilder {
	if edge.Source == "" || edge.Target == "" {
		b.errs = append(b.errs, fmt.Sprintf("edge %q -> %q has an empty endpoint", edge.Source, edge.Target))
		return b
	}
	if err := b.graph.AddEdge(edge); err != nil {
		b.errs = append(b.errs, err.Error())
	}
	return b
}

// Fork expands to one unconditional edge from source to each target,
// in target order
func (b *GraphBuilder) Fork(source string, targets ...string) *GraphBuilder {
	if len(targets) == 0 {
		b.errs = append(b.errs, fmt.Sprintf("fork from %q needs at least one target", source))
		return b
	}
	for _, target := range targets {
		b.AddEdge(source, target)
	}
	return b
}

// ForkWhen expands to one edge per branch, carrying the branch's label
// and predicate by positional pairing
func (b *GraphBuilder) ForkWhen(source string, branches ...Branch) *GraphBuilder {
	if len(branches) == 0 {
		b.errs = append(b.errs, fmt.Sprintf("fork from %q needs at least one branch", source))
		return b
	}
	for _, br := range branches {
		b.AddConditionalEdge(source, br.Target, br.Label, br.Predicate)
	}
	return b
}

// Join expands to one unconditional edge from each source to target,
// in source order
func (b *GraphBuilder) Join(target string, sources ...string) *GraphBuilder {
	if len(sources) == 0 {
		b.errs = append(b.errs, fmt.Sprintf("join into %q needs at least one source", target))
		return b
	}
	for _, source := range sources {
		b.AddEdge(source, target)
	}
	return b
}

// SetEntryPoint sets the entry node id explicitly
func (b *GraphBuilder) SetEntryPoint(nodeID string) *GraphBuilder {
	if nodeID == "" {
		b.errs = append(b.errs, "entry point must not be empty")
		return b
	}
	b.graph.SetEntryPoint(nodeID)
	return b
}

// SetExitPoints sets the exit node ids explicitly
func (b *GraphBuilder) SetExitPoints(nodeIDs ...string) *GraphBuilder {
	for _, id := range nodeIDs {
		if id == "" {
			b.errs = append(b.errs, "exit point must not be empty")
			return b
		}
	}
	b.graph.SetExitPoints(nodeIDs...)
	return b
}

// Build finalizes the graph. All argument-level and structural problems
// are aggregated into a single ValidationError.
func (b *GraphBuilder) Build() (*flowgraph.GraphDefinition, error) {
	problems := append([]string{}, b.errs...)
	problems = append(problems, b.graph.Validate()...)
	if len(problems) > 0 {
		return nil, flowgraph.NewValidationError(b.graph.ID(), problems)
	}
	return b.graph, nil
}

// MustBuild finalizes the graph, panicking on error
func (b *GraphBuilder) MustBuild() *flowgraph.GraphDefinition {
	g, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build graph: %v", err))
	}
	return g
}
