package flowgraph

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubNode is a minimal Node for graph structure tests
type stubNode struct {
	id string
}

func (n stubNode) ID() string   { return n.id }
func (n stubNode) Name() string { return n.id }
func (n stubNode) Execute(_ context.Context, state WorkflowState) (NodeResult, error) {
	return NewSuccess(n.id, state), nil
}
func (n stubNode) InputKeys() []string  { return nil }
func (n stubNode) OutputKeys() []string { return nil }

func buildGraph(t *testing.T, nodeIDs []string, edges []Edge) *GraphDefinition {
	t.Helper()
	g := NewGraphDefinition("g", "test graph")
	for _, id := range nodeIDs {
		require.NoError(t, g.AddNode(stubNode{id: id}))
	}
	for _, e := range edges {
		require.NoError(t, g.AddEdge(e))
	}
	return g
}

func TestGraphDefinition_AddNode_Duplicate(t *testing.T) {
	g := NewGraphDefinition("g", "test")
	require.NoError(t, g.AddNode(stubNode{id: "a"}))

	err := g.AddNode(stubNode{id: "a"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestGraphDefinition_EntryDefaultsToFirstInserted(t *testing.T) {
	g := buildGraph(t, []string{"a", "b"}, []Edge{{Source: "a", Target: "b"}})
	assert.Equal(t, "a", g.EntryNodeID())
}

func TestGraphDefinition_ExitDefaultsToSinks(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "c"}, []Edge{
		{Source: "a", Target: "b"},
		{Source: "a", Target: "c"},
	})
	assert.Equal(t, []string{"b", "c"}, g.ExitNodeIDs())
}

func TestGraphDefinition_OutgoingPreservesInsertionOrder(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "c", "d"}, []Edge{
		{Source: "a", Target: "c"},
		{Source: "a", Target: "b"},
		{Source: "a", Target: "d"},
	})

	out := g.Outgoing("a")
	require.Len(t, out, 3)
	assert.Equal(t, "c", out[0].Target)
	assert.Equal(t, "b", out[1].Target)
	assert.Equal(t, "d", out[2].Target)
}

func TestGraphDefinition_Incoming(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "c"}, []Edge{
		{Source: "a", Target: "c"},
		{Source: "b", Target: "c"},
	})

	in := g.Incoming("c")
	require.Len(t, in, 2)
	assert.Equal(t, "a", in[0].Source)
	assert.Equal(t, "b", in[1].Source)
}

func TestGraphDefinition_Reachable(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "c", "d"}, []Edge{
		{Source: "a", Target: "b"},
		{Source: "b", Target: "c"},
	})

	reachable := g.Reachable("a")
	assert.True(t, reachable["a"])
	assert.True(t, reachable["b"])
	assert.True(t, reachable["c"])
	assert.False(t, reachable["d"])
}

func TestGraphDefinition_Validate_EmptyGraph(t *testing.T) {
	g := NewGraphDefinition("g", "empty")
	problems := g.Validate()
	require.NotEmpty(t, problems)
	assert.Contains(t, problems[0], "no nodes")
}

func TestGraphDefinition_Validate_Valid(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "c"}, []Edge{
		{Source: "a", Target: "b"},
		{Source: "b", Target: "c"},
	})
	assert.Empty(t, g.Validate())
}

func TestGraphDefinition_Validate_UnknownEntry(t *testing.T) {
	g := buildGraph(t, []string{"a"}, nil)
	g.SetEntryPoint("missing")

	problems := g.Validate()
	require.NotEmpty(t, problems)
	assert.Contains(t, problems[0], "entry node missing not found")
}

func TestGraphDefinition_Validate_UnknownExit(t *testing.T) {
	g := buildGraph(t, []string{"a"}, nil)
	g.SetExitPoints("missing")

	problems := g.Validate()
	require.NotEmpty(t, problems)
	assert.Contains(t, problems[0], "exit node missing not found")
}

func TestGraphDefinition_Validate_UnknownEdgeEndpoints(t *testing.T) {
	g := buildGraph(t, []string{"a"}, nil)
	require.NoError(t, g.AddEdge(Edge{Source: "a", Target: "ghost"}))

	problems := g.Validate()
	require.NotEmpty(t, problems)
	assert.Contains(t, problems[0], "unknown target ghost")
}

func TestGraphDefinition_Validate_Unreachable(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "orphan"}, []Edge{
		{Source: "a", Target: "b"},
	})

	problems := g.Validate()
	require.NotEmpty(t, problems)
	assert.Contains(t, problems[0], "orphan is not reachable")
}

func TestGraphDefinition_Validate_Cycle(t *testing.T) {
	g := buildGraph(t, []string{"a", "b", "c"}, []Edge{
		{Source: "a", Target: "b"},
		{Source: "b", Target: "c"},
		{Source: "c", Target: "a"},
	})

	problems := g.Validate()
	require.NotEmpty(t, problems)
	assert.Contains(t, strings.Join(problems, "; "), "cycle detected: a -> b -> c -> a")
}

func TestGraphDefinition_Validate_SelfLoop(t *testing.T) {
	g := buildGraph(t, []string{"a"}, []Edge{{Source: "a", Target: "a"}})

	problems := g.Validate()
	require.NotEmpty(t, problems)
	assert.Contains(t, problems[0], "cycle detected: a -> a")
}

func TestGraphDefinition_Validate_SelfLoopNeverPredicate(t *testing.T) {
	g := buildGraph(t, []string{"a"}, []Edge{
		{Source: "a", Target: "a", Predicate: Never()},
	})

	assert.Empty(t, g.Validate())
}

func TestGraphDefinition_Validate_ConditionalBackEdgeStillCycles(t *testing.T) {
	// A non-constant predicate must be treated as potentially true
	g := buildGraph(t, []string{"a", "b"}, []Edge{
		{Source: "a", Target: "b"},
		{Source: "b", Target: "a", Predicate: func(s WorkflowState) bool { return false }},
	})

	problems := g.Validate()
	require.NotEmpty(t, problems)
	assert.Contains(t, problems[0], "cycle detected")
}

func TestGraphDefinition_Validate_Cached(t *testing.T) {
	g := buildGraph(t, []string{"a"}, nil)
	first := g.Validate()
	second := g.Validate()
	assert.Equal(t, first, second)
}

func TestEdge_Enabled(t *testing.T) {
	state := NewWorkflowState("wf", "").WithData("route", "b")

	unconditional := Edge{Source: "a", Target: "b"}
	assert.True(t, unconditional.Enabled(state))

	conditional := Edge{Source: "a", Target: "b", Predicate: func(s WorkflowState) bool {
		route, _ := StateValue[string](s, "route")
		return route == "b"
	}}
	assert.True(t, conditional.Enabled(state))

	never := Edge{Source: "a", Target: "b", Predicate: Never()}
	assert.False(t, never.Enabled(state))

	always := Edge{Source: "a", Target: "b", Predicate: Always()}
	assert.True(t, always.Enabled(state))
}
