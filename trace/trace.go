// Package trace folds an execution's event stream into an ordered log
// with analytical queries over node timing, errors and the execution
// path.
package trace

import (
	"time"

	"github.com/sicko7947/flowgraph"
)

// RunTrace is the ordered event log of one execution
type RunTrace struct {
	ExecutionID string
	WorkflowID  string
	StartedAt   time.Time
	CompletedAt *time.Time
	Events      []flowgraph.StateEvent
	Metadata    map[string]string
}

// NewRunTrace creates an empty trace started now
func NewRunTrace(executionID, workflowID string) *RunTrace {
	return &RunTrace{
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		StartedAt:   time.Now(),
		Metadata:    map[string]string{},
	}
}

// Append records an event, stamping CompletedAt on the terminal one
func (t *RunTrace) Append(ev flowgraph.StateEvent) {
	t.Events = append(t.Events, ev)
	if flowgraph.IsTerminalEvent(ev) {
		at := ev.Meta().Timestamp
		t.CompletedAt = &at
	}
}

// Duration is the trace's wall time; open traces measure against now
func (t *RunTrace) Duration() time.Duration {
	if t.CompletedAt != nil {
		return t.CompletedAt.Sub(t.StartedAt)
	}
	return time.Since(t.StartedAt)
}

// IsCompleted reports whether a WorkflowCompleted event was observed
func (t *RunTrace) IsCompleted() bool {
	for _, ev := range t.Events {
		if ev.Type() == flowgraph.EventWorkflowCompleted {
			return true
		}
	}
	return false
}

// NodeExecution pairs one NodeEntered with its matching NodeExited
type NodeExecution struct {
	NodeID    string
	EnteredAt time.Time
	ExitedAt  time.Time
	Duration  time.Duration
}

// NodeExecutions pairs each NodeEntered with the next NodeExited on the
// same node id; unmatched entries are discarded
func (t *RunTrace) NodeExecutions() []NodeExecution {
	var executions []NodeExecution
	pending := make(map[string][]time.Time)

	for _, ev := range t.Events {
		meta := ev.Meta()
		switch ev.Type() {
		case flowgraph.EventNodeEntered:
			pending[meta.NodeID] = append(pending[meta.NodeID], meta.Timestamp)
		case flowgraph.EventNodeExited:
			entries := pending[meta.NodeID]
			if len(entries) == 0 {
				continue
			}
			enteredAt := entries[0]
			pending[meta.NodeID] = entries[1:]
			executions = append(executions, NodeExecution{
				NodeID:    meta.NodeID,
				EnteredAt: enteredAt,
				ExitedAt:  meta.Timestamp,
				Duration:  meta.Timestamp.Sub(enteredAt),
			})
		}
	}
	return executions
}

// NodeErrorView is a compact view of one NodeError event
type NodeErrorView struct {
	NodeID     string
	Error      string
	StackTrace string
	At         time.Time
}

// Errors returns all NodeError records
func (t *RunTrace) Errors() []NodeErrorView {
	var views []NodeErrorView
	for _, ev := range t.Events {
		if errEv, ok := ev.(flowgraph.NodeErrorEvent); ok {
			views = append(views, NodeErrorView{
				NodeID:     errEv.Meta().NodeID,
				Error:      errEv.Error,
				StackTrace: errEv.StackTrace,
				At:         errEv.Meta().Timestamp,
			})
		}
	}
	return views
}

// HasErrors reports whether any NodeError was observed
func (t *RunTrace) HasErrors() bool {
	for _, ev := range t.Events {
		if ev.Type() == flowgraph.EventNodeError {
			return true
		}
	}
	return false
}

// FilterByNode returns the events for one node id, in order
func (t *RunTrace) FilterByNode(nodeID string) []flowgraph.StateEvent {
	var out []flowgraph.StateEvent
	for _, ev := range t.Events {
		if ev.Meta().NodeID == nodeID {
			out = append(out, ev)
		}
	}
	return out
}

// FilterByType returns the events of one type, in order
func (t *RunTrace) FilterByType(eventType flowgraph.EventType) []flowgraph.StateEvent {
	var out []flowgraph.StateEvent
	for _, ev := range t.Events {
		if ev.Type() == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// FilterByTimeRange returns the events with from <= timestamp < to
func (t *RunTrace) FilterByTimeRange(from, to time.Time) []flowgraph.StateEvent {
	var out []flowgraph.StateEvent
	for _, ev := range t.Events {
		at := ev.Meta().Timestamp
		if !at.Before(from) && at.Before(to) {
			out = append(out, ev)
		}
	}
	return out
}
