package flowgraph

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Predicate decides whether an edge is enabled for a given state.
// Predicates must be cheap and side-effect-free; the executor evaluates
// them repeatedly and never memoises.
type Predicate func(WorkflowState) bool

var (
	alwaysPredicate Predicate = func(WorkflowState) bool { return true }
	neverPredicate  Predicate = func(WorkflowState) bool { return false }
)

// Always returns the sentinel predicate that enables an edge
// unconditionally. A nil predicate means the same thing.
func Always() Predicate { return alwaysPredicate }

// Never returns the sentinel constant-false predicate. Back edges
// guarded by it are ignored during cycle detection.
func Never() Predicate { return neverPredicate }

// isConstFalse reports whether p is structurally the Never sentinel
func isConstFalse(p Predicate) bool {
	return p != nil && reflect.ValueOf(p).Pointer() == reflect.ValueOf(neverPredicate).Pointer()
}

// Edge is a directed, ordered link between two nodes. A nil Predicate
// is equivalent to Always.
type Edge struct {
	Source    string
	Target    string
	Label     string
	Predicate Predicate
}

// Enabled evaluates the edge predicate against a state
func (e Edge) Enabled(state WorkflowState) bool {
	if e.Predicate == nil {
		return true
	}
	return e.Predicate(state)
}

// GraphDefinition is a validated workflow graph: nodes keyed by id plus
// an ordered edge list. Sibling outgoing edges keep their insertion
// order everywhere.
type GraphDefinition struct {
	id   string
	name string

	nodes     map[string]Node
	nodeOrder []string
	edges     []Edge

	entryNodeID string
	exitNodeIDs []string

	validateOnce sync.Once
	validateErrs []string
}

// NewGraphDefinition creates an empty graph
func NewGraphDefinition(id, name string) *GraphDefinition {
	return &GraphDefinition{
		id:    id,
		name:  name,
		nodes: make(map[string]Node),
	}
}

// ID returns the graph id
func (g *GraphDefinition) ID() string { return g.id }

// Name returns the graph name
func (g *GraphDefinition) Name() string { return g.name }

// AddNode registers a node. Duplicate ids are rejected.
func (g *GraphDefinition) AddNode(n Node) error {
	if n == nil || n.ID() == "" {
		return fmt.Errorf("node id must not be empty")
	}
	if _, exists := g.nodes[n.ID()]; exists {
		return fmt.Errorf("duplicate node id %s", n.ID())
	}
	g.nodes[n.ID()] = n
	g.nodeOrder = append(g.nodeOrder, n.ID())
	return nil
}

// AddEdge appends an edge; endpoint existence is checked at Validate time
func (g *GraphDefinition) AddEdge(edge Edge) error {
	if edge.Source == "" || edge.Target == "" {
		return fmt.Errorf("edge endpoints must not be empty")
	}
	g.edges = append(g.edges, edge)
	return nil
}

// SetEntryPoint sets the entry node id explicitly
func (g *GraphDefinition) SetEntryPoint(nodeID string) {
	g.entryNodeID = nodeID
}

// SetExitPoints sets the exit node ids explicitly
func (g *GraphDefinition) SetExitPoints(nodeIDs ...string) {
	g.exitNodeIDs = append([]string{}, nodeIDs...)
}

// Node returns a node by id
func (g *GraphDefinition) Node(nodeID string) (Node, bool) {
	n, ok := g.nodes[nodeID]
	return n, ok
}

// NodeIDs returns all node ids in insertion order
func (g *GraphDefinition) NodeIDs() []string {
	return append([]string{}, g.nodeOrder...)
}

// Edges returns the ordered edge list
func (g *GraphDefinition) Edges() []Edge {
	return append([]Edge{}, g.edges...)
}

// EntryNodeID returns the configured entry, defaulting to the first
// inserted node
func (g *GraphDefinition) EntryNodeID() string {
	if g.entryNodeID != "" {
		return g.entryNodeID
	}
	if len(g.nodeOrder) > 0 {
		return g.nodeOrder[0]
	}
	return ""
}

// ExitNodeIDs returns the configured exits, defaulting to the nodes
// with zero outgoing edges in insertion order
func (g *GraphDefinition) ExitNodeIDs() []string {
	if len(g.exitNodeIDs) > 0 {
		return append([]string{}, g.exitNodeIDs...)
	}
	var exits []string
	for _, id := range g.nodeOrder {
		if len(g.Outgoing(id)) == 0 {
			exits = append(exits, id)
		}
	}
	return exits
}

// Outgoing returns the edges leaving a node in insertion order
func (g *GraphDefinition) Outgoing(nodeID string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// Incoming returns the edges entering a node in insertion order
func (g *GraphDefinition) Incoming(nodeID string) []Edge {
	var in []Edge
	for _, e := range g.edges {
		if e.Target == nodeID {
			in = append(in, e)
		}
	}
	return in
}

// Reachable returns the BFS closure from a node, ignoring predicates.
// The start node is included.
func (g *GraphDefinition) Reachable(nodeID string) map[string]bool {
	reachable := map[string]bool{nodeID: true}
	queue := []string{nodeID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, e := range g.Outgoing(current) {
			if !reachable[e.Target] {
				reachable[e.Target] = true
				queue = append(queue, e.Target)
			}
		}
	}
	return reachable
}

// Validate checks the graph structure and returns all problems found.
// The result is cached after the first call. An empty slice means the
// graph is valid.
func (g *GraphDefinition) Validate() []string {
	g.validateOnce.Do(func() {
		g.validateErrs = g.validate()
	})
	return append([]string{}, g.validateErrs...)
}

func (g *GraphDefinition) validate() []string {
	var errs []string

	if len(g.nodes) == 0 {
		errs = append(errs, "graph has no nodes")
		return errs
	}

	entry := g.EntryNodeID()
	if _, ok := g.nodes[entry]; !ok {
		errs = append(errs, fmt.Sprintf("entry node %s not found in graph", entry))
	}

	for _, exit := range g.exitNodeIDs {
		if _, ok := g.nodes[exit]; !ok {
			errs = append(errs, fmt.Sprintf("exit node %s not found in graph", exit))
		}
	}

	for _, e := range g.edges {
		if _, ok := g.nodes[e.Source]; !ok {
			errs = append(errs, fmt.Sprintf("edge %s -> %s references unknown source %s", e.Source, e.Target, e.Source))
		}
		if _, ok := g.nodes[e.Target]; !ok {
			errs = append(errs, fmt.Sprintf("edge %s -> %s references unknown target %s", e.Source, e.Target, e.Target))
		}
	}

	if _, ok := g.nodes[entry]; ok {
		reachable := g.Reachable(entry)
		for _, id := range g.nodeOrder {
			if !reachable[id] {
				errs = append(errs, fmt.Sprintf("node %s is not reachable from entry point %s", id, entry))
			}
		}
	}

	errs = append(errs, g.findCycles()...)
	return errs
}

// findCycles runs DFS with a recursion stack over the edges whose
// predicate is not the constant-false sentinel. Conditional back edges
// with non-constant predicates are treated as potentially true.
func (g *GraphDefinition) findCycles() []string {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(g.nodes))
	var path []string
	var errs []string

	adjacency := make(map[string][]string, len(g.nodes))
	for _, e := range g.edges {
		if isConstFalse(e.Predicate) {
			continue
		}
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
	}

	var visit func(nodeID string)
	visit = func(nodeID string) {
		state[nodeID] = inStack
		path = append(path, nodeID)
		for _, next := range adjacency[nodeID] {
			switch state[next] {
			case unvisited:
				if _, ok := g.nodes[next]; ok {
					visit(next)
				}
			case inStack:
				// Back edge: report the cycle path from the first
				// occurrence of next through nodeID and back.
				start := 0
				for i, id := range path {
					if id == next {
						start = i
						break
					}
				}
				cycle := append(append([]string{}, path[start:]...), next)
				errs = append(errs, fmt.Sprintf("cycle detected: %s", strings.Join(cycle, " -> ")))
			}
		}
		path = path[:len(path)-1]
		state[nodeID] = done
	}

	for _, id := range g.nodeOrder {
		if state[id] == unvisited {
			visit(id)
		}
	}
	return errs
}
