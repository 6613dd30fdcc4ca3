package trace

import (
	"time"

	"github.com/sicko7947/flowgraph"
)

// Stats summarises one trace
type Stats struct {
	TotalEvents         int
	ErrorCount          int
	NodeExecutionCounts map[string]int
	AverageNodeDuration time.Duration
	LongestNode         string
	LongestDuration     time.Duration
	ShortestNode        string
	ShortestDuration    time.Duration
	ExecutionPath       []string
}

// Analyzer derives statistics from a RunTrace
type Analyzer struct {
	trace *RunTrace
}

// NewAnalyzer wraps a trace
func NewAnalyzer(t *RunTrace) *Analyzer {
	return &Analyzer{trace: t}
}

// Stats computes the summary of the wrapped trace
func (a *Analyzer) Stats() Stats {
	stats := Stats{
		TotalEvents:         len(a.trace.Events),
		ErrorCount:          len(a.trace.Errors()),
		NodeExecutionCounts: map[string]int{},
		ExecutionPath:       a.ExecutionPath(),
	}

	executions := a.trace.NodeExecutions()
	var total time.Duration
	for i, exec := range executions {
		stats.NodeExecutionCounts[exec.NodeID]++
		total += exec.Duration
		if i == 0 || exec.Duration > stats.LongestDuration {
			stats.LongestNode = exec.NodeID
			stats.LongestDuration = exec.Duration
		}
		if i == 0 || exec.Duration < stats.ShortestDuration {
			stats.ShortestNode = exec.NodeID
			stats.ShortestDuration = exec.Duration
		}
	}
	if len(executions) > 0 {
		stats.AverageNodeDuration = total / time.Duration(len(executions))
	}
	return stats
}

// ExecutionPath returns the ordered node ids of the NodeEntered events
func (a *Analyzer) ExecutionPath() []string {
	var path []string
	for _, ev := range a.trace.Events {
		if ev.Type() == flowgraph.EventNodeEntered {
			path = append(path, ev.Meta().NodeID)
		}
	}
	return path
}

// HasErrors reports whether the trace recorded any node error
func (a *Analyzer) HasErrors() bool {
	return a.trace.HasErrors()
}

// IsHealthy reports a completed trace with no errors
func (a *Analyzer) IsHealthy() bool {
	return a.trace.IsCompleted() && !a.trace.HasErrors()
}
