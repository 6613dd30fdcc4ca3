package trace

import "github.com/sicko7947/flowgraph"

// Collect drains an event stream into a trace. It returns when the
// channel closes, which the executor does after the terminal event.
func Collect(executionID, workflowID string, events <-chan flowgraph.StateEvent) *RunTrace {
	t := NewRunTrace(executionID, workflowID)
	for ev := range events {
		t.Append(ev)
	}
	return t
}

// Tee forwards events to out while recording them on the trace. The
// returned channel closes when the source closes. Useful when a caller
// wants both streaming consumption and a retained trace.
func Tee(t *RunTrace, events <-chan flowgraph.StateEvent) <-chan flowgraph.StateEvent {
	out := make(chan flowgraph.StateEvent, cap(events))
	go func() {
		defer close(out)
		for ev := range events {
			t.Append(ev)
			out <- ev
		}
	}()
	return out
}
