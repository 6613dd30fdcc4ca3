package builder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sicko7947/flowgraph"
	"github.com/sicko7947/flowgraph/nodes"
)

func passthrough(id string) flowgraph.Node {
	return nodes.NewPassthrough(id, id)
}

func TestGraphBuilder_Linear(t *testing.T) {
	g, err := NewGraph("g", "linear").
		AddNodes(passthrough("a"), passthrough("b"), passthrough("c")).
		AddEdge("a", "b").
		AddEdge("b", "c").
		Build()

	require.NoError(t, err)
	assert.Equal(t, "a", g.EntryNodeID())
	assert.Equal(t, []string{"c"}, g.ExitNodeIDs())
	assert.Len(t, g.Edges(), 2)
}

func TestGraphBuilder_Fork(t *testing.T) {
	g, err := NewGraph("g", "fork").
		AddNodes(passthrough("a"), passthrough("b"), passthrough("c")).
		Fork("a", "b", "c").
		Build()

	require.NoError(t, err)
	out := g.Outgoing("a")
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Target)
	assert.Equal(t, "c", out[1].Target)
}

func TestGraphBuilder_ForkWhen(t *testing.T) {
	routeIs := func(want string) flowgraph.Predicate {
		return func(s flowgraph.WorkflowState) bool {
			route, _ := flowgraph.StateValue[string](s, "route")
			return route == want
		}
	}

	g, err := NewGraph("g", "conditional fork").
		AddNodes(passthrough("a"), passthrough("b"), passthrough("c")).
		ForkWhen("a",
			Branch{Target: "b", Label: "to-b", Predicate: routeIs("b")},
			Branch{Target: "c", Label: "to-c", Predicate: routeIs("c")},
		).
		Build()

	require.NoError(t, err)
	out := g.Outgoing("a")
	require.Len(t, out, 2)
	assert.Equal(t, "to-b", out[0].Label)
	assert.NotNil(t, out[0].Predicate)

	state := flowgraph.NewWorkflowState("wf", "").WithData("route", "b")
	assert.True(t, out[0].Enabled(state))
	assert.False(t, out[1].Enabled(state))
}

func TestGraphBuilder_Join(t *testing.T) {
	g, err := NewGraph("g", "join").
		AddNodes(passthrough("a"), passthrough("b"), passthrough("c"), passthrough("d")).
		Fork("a", "b", "c").
		Join("d", "b", "c").
		Build()

	require.NoError(t, err)
	in := g.Incoming("d")
	require.Len(t, in, 2)
	assert.Equal(t, "b", in[0].Source)
	assert.Equal(t, "c", in[1].Source)
}

func TestGraphBuilder_DuplicateNodeRecorded(t *testing.T) {
	_, err := NewGraph("g", "dup").
		AddNodes(passthrough("a"), passthrough("a")).
		Build()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate node id a")
}

func TestGraphBuilder_EmptyEndpointRecorded(t *testing.T) {
	_, err := NewGraph("g", "bad edge").
		AddNode(passthrough("a")).
		AddEdge("a", "").
		Build()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty endpoint")
}

func TestGraphBuilder_AggregatesAllErrors(t *testing.T) {
	_, err := NewGraph("g", "many problems").
		AddNodes(passthrough("a"), passthrough("a")).
		AddEdge("", "a").
		AddEdge("a", "ghost").
		Build()

	require.Error(t, err)
	var vErr *flowgraph.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.GreaterOrEqual(t, len(vErr.Problems), 3)
}

func TestGraphBuilder_CycleRejected(t *testing.T) {
	_, err := NewGraph("g", "cycle").
		AddNodes(passthrough("a"), passthrough("b"), passthrough("c")).
		AddEdge("a", "b").
		AddEdge("b", "c").
		AddEdge("c", "a").
		Build()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle detected")
}

func TestGraphBuilder_SelfLoopNeverAccepted(t *testing.T) {
	g, err := NewGraph("g", "guarded loop").
		AddNode(passthrough("a")).
		AddConditionalEdge("a", "a", "never", flowgraph.Never()).
		Build()

	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestGraphBuilder_ExplicitEntryAndExits(t *testing.T) {
	g, err := NewGraph("g", "explicit").
		AddNodes(passthrough("a"), passthrough("b")).
		AddEdge("a", "b").
		SetEntryPoint("a").
		SetExitPoints("b").
		Build()

	require.NoError(t, err)
	assert.Equal(t, "a", g.EntryNodeID())
	assert.Equal(t, []string{"b"}, g.ExitNodeIDs())
}

func TestGraphBuilder_MustBuildPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewGraph("g", "empty").MustBuild()
	})
}
