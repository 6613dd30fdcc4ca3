package trace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sicko7947/flowgraph"
)

func eventAt(t time.Time, build func(meta flowgraph.EventMeta) flowgraph.StateEvent, nodeID string) flowgraph.StateEvent {
	meta := flowgraph.EventMeta{
		ID:          nodeID + "-" + t.Format("150405.000"),
		ExecutionID: "exec-1",
		NodeID:      nodeID,
		State:       flowgraph.WorkflowState{ID: "s", WorkflowID: "wf"},
		Timestamp:   t,
	}
	return build(meta)
}

func entered(t time.Time, nodeID string) flowgraph.StateEvent {
	return eventAt(t, func(m flowgraph.EventMeta) flowgraph.StateEvent {
		return flowgraph.NodeEnteredEvent{EventMeta: m}
	}, nodeID)
}

func exited(t time.Time, nodeID string) flowgraph.StateEvent {
	return eventAt(t, func(m flowgraph.EventMeta) flowgraph.StateEvent {
		return flowgraph.NodeExitedEvent{EventMeta: m}
	}, nodeID)
}

func nodeError(t time.Time, nodeID, msg string) flowgraph.StateEvent {
	return eventAt(t, func(m flowgraph.EventMeta) flowgraph.StateEvent {
		return flowgraph.NodeErrorEvent{EventMeta: m, Error: msg}
	}, nodeID)
}

func completed(t time.Time) flowgraph.StateEvent {
	return eventAt(t, func(m flowgraph.EventMeta) flowgraph.StateEvent {
		return flowgraph.WorkflowCompletedEvent{EventMeta: m}
	}, "")
}

func sampleTrace() *RunTrace {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr := NewRunTrace("exec-1", "wf")
	tr.StartedAt = base
	tr.Append(entered(base.Add(10*time.Millisecond), "a"))
	tr.Append(exited(base.Add(30*time.Millisecond), "a"))
	tr.Append(entered(base.Add(40*time.Millisecond), "b"))
	tr.Append(exited(base.Add(140*time.Millisecond), "b"))
	tr.Append(entered(base.Add(150*time.Millisecond), "c"))
	tr.Append(nodeError(base.Add(160*time.Millisecond), "c", "boom"))
	tr.Append(completed(base.Add(200 * time.Millisecond)))
	return tr
}

func TestRunTrace_DurationAndCompletion(t *testing.T) {
	tr := sampleTrace()

	require.NotNil(t, tr.CompletedAt)
	assert.Equal(t, 200*time.Millisecond, tr.Duration())
	assert.True(t, tr.IsCompleted())
}

func TestRunTrace_OpenTraceDuration(t *testing.T) {
	tr := NewRunTrace("exec-1", "wf")
	assert.Greater(t, tr.Duration(), time.Duration(0))
	assert.False(t, tr.IsCompleted())
}

func TestRunTrace_NodeExecutionsPairing(t *testing.T) {
	tr := sampleTrace()

	executions := tr.NodeExecutions()
	require.Len(t, executions, 2)

	assert.Equal(t, "a", executions[0].NodeID)
	assert.Equal(t, 20*time.Millisecond, executions[0].Duration)
	assert.Equal(t, "b", executions[1].NodeID)
	assert.Equal(t, 100*time.Millisecond, executions[1].Duration)
}

func TestRunTrace_OrphanEnteredDiscarded(t *testing.T) {
	base := time.Now()
	tr := NewRunTrace("exec-1", "wf")
	tr.Append(entered(base, "a"))
	tr.Append(exited(base.Add(time.Millisecond), "b"))

	assert.Empty(t, tr.NodeExecutions())
}

func TestRunTrace_Errors(t *testing.T) {
	tr := sampleTrace()

	errs := tr.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "c", errs[0].NodeID)
	assert.Equal(t, "boom", errs[0].Error)
	assert.True(t, tr.HasErrors())
}

func TestRunTrace_Filters(t *testing.T) {
	tr := sampleTrace()

	assert.Len(t, tr.FilterByNode("a"), 2)
	assert.Len(t, tr.FilterByType(flowgraph.EventNodeEntered), 3)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := tr.FilterByTimeRange(base.Add(35*time.Millisecond), base.Add(145*time.Millisecond))
	assert.Len(t, window, 2)
}

func TestAnalyzer_Stats(t *testing.T) {
	stats := NewAnalyzer(sampleTrace()).Stats()

	assert.Equal(t, 7, stats.TotalEvents)
	assert.Equal(t, 1, stats.ErrorCount)
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, stats.NodeExecutionCounts)
	assert.Equal(t, 60*time.Millisecond, stats.AverageNodeDuration)
	assert.Equal(t, "b", stats.LongestNode)
	assert.Equal(t, 100*time.Millisecond, stats.LongestDuration)
	assert.Equal(t, "a", stats.ShortestNode)
	assert.Equal(t, 20*time.Millisecond, stats.ShortestDuration)
	assert.Equal(t, []string{"a", "b", "c"}, stats.ExecutionPath)
}

func TestAnalyzer_Health(t *testing.T) {
	withError := NewAnalyzer(sampleTrace())
	assert.True(t, withError.HasErrors())
	assert.False(t, withError.IsHealthy())

	base := time.Now()
	clean := NewRunTrace("exec-2", "wf")
	clean.Append(entered(base, "a"))
	clean.Append(exited(base.Add(time.Millisecond), "a"))
	clean.Append(completed(base.Add(2 * time.Millisecond)))
	analyzer := NewAnalyzer(clean)
	assert.False(t, analyzer.HasErrors())
	assert.True(t, analyzer.IsHealthy())
}

func TestCollect(t *testing.T) {
	ch := make(chan flowgraph.StateEvent, 4)
	base := time.Now()
	ch <- entered(base, "a")
	ch <- exited(base.Add(time.Millisecond), "a")
	ch <- completed(base.Add(2 * time.Millisecond))
	close(ch)

	tr := Collect("exec-1", "wf", ch)
	assert.Len(t, tr.Events, 3)
	assert.True(t, tr.IsCompleted())
	require.NotNil(t, tr.CompletedAt)
}

func TestTee(t *testing.T) {
	ch := make(chan flowgraph.StateEvent, 2)
	base := time.Now()
	ch <- entered(base, "a")
	ch <- completed(base.Add(time.Millisecond))
	close(ch)

	tr := NewRunTrace("exec-1", "wf")
	var forwarded int
	for range Tee(tr, ch) {
		forwarded++
	}

	assert.Equal(t, 2, forwarded)
	assert.Len(t, tr.Events, 2)
}
