package flowgraph

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType discriminates the StateEvent variants on the wire
type EventType string

const (
	EventNodeEntered       EventType = "NodeEntered"
	EventNodeExited        EventType = "NodeExited"
	EventNodeError         EventType = "NodeError"
	EventWorkflowCompleted EventType = "WorkflowCompleted"
	EventWorkflowFailed    EventType = "WorkflowFailed"
)

// EventMeta is the identity every state event carries. State is the
// snapshot at the moment the event was generated.
type EventMeta struct {
	ID           string
	ExecutionID  string
	NodeID       string
	State        WorkflowState
	Timestamp    time.Time
	PreviousHash string
}

func (m EventMeta) Meta() EventMeta { return m }

// StateEvent is one state transition observed during an execution.
// It is a closed sum discriminated by Type.
type StateEvent interface {
	Type() EventType
	Meta() EventMeta
	sealedEvent()
}

// NodeEnteredEvent is emitted immediately before a node body runs
type NodeEnteredEvent struct{ EventMeta }

// NodeExitedEvent is emitted after a node committed its output state
type NodeExitedEvent struct{ EventMeta }

// NodeErrorEvent is emitted when a node failed, timed out or panicked
type NodeErrorEvent struct {
	EventMeta
	Error      string
	StackTrace string
}

// WorkflowCompletedEvent terminates a successful run
type WorkflowCompletedEvent struct{ EventMeta }

// WorkflowFailedEvent terminates a failed or cancelled run
type WorkflowFailedEvent struct {
	EventMeta
	Error string
}

func (NodeEnteredEvent) Type() EventType       { return EventNodeEntered }
func (NodeExitedEvent) Type() EventType        { return EventNodeExited }
func (NodeErrorEvent) Type() EventType         { return EventNodeError }
func (WorkflowCompletedEvent) Type() EventType { return EventWorkflowCompleted }
func (WorkflowFailedEvent) Type() EventType    { return EventWorkflowFailed }

func (NodeEnteredEvent) sealedEvent()       {}
func (NodeExitedEvent) sealedEvent()        {}
func (NodeErrorEvent) sealedEvent()         {}
func (WorkflowCompletedEvent) sealedEvent() {}
func (WorkflowFailedEvent) sealedEvent()    {}

func newEventMeta(executionID, nodeID string, state WorkflowState, previousHash string) EventMeta {
	return EventMeta{
		ID:           uuid.New().String(),
		ExecutionID:  executionID,
		NodeID:       nodeID,
		State:        state,
		Timestamp:    time.Now(),
		PreviousHash: previousHash,
	}
}

// NewNodeEntered creates a NodeEntered event
func NewNodeEntered(executionID, nodeID string, state WorkflowState, previousHash string) NodeEnteredEvent {
	return NodeEnteredEvent{newEventMeta(executionID, nodeID, state, previousHash)}
}

// NewNodeExited creates a NodeExited event
func NewNodeExited(executionID, nodeID string, state WorkflowState, previousHash string) NodeExitedEvent {
	return NodeExitedEvent{newEventMeta(executionID, nodeID, state, previousHash)}
}

// NewNodeError creates a NodeError event. stackTrace may be empty.
func NewNodeError(executionID, nodeID string, state WorkflowState, errMsg, stackTrace, previousHash string) NodeErrorEvent {
	return NodeErrorEvent{
		EventMeta:  newEventMeta(executionID, nodeID, state, previousHash),
		Error:      errMsg,
		StackTrace: stackTrace,
	}
}

// NewWorkflowCompleted creates the successful terminal event
func NewWorkflowCompleted(executionID string, state WorkflowState, previousHash string) WorkflowCompletedEvent {
	return WorkflowCompletedEvent{newEventMeta(executionID, "", state, previousHash)}
}

// NewWorkflowFailed creates the failed terminal event
func NewWorkflowFailed(executionID string, state WorkflowState, errMsg, previousHash string) WorkflowFailedEvent {
	return WorkflowFailedEvent{
		EventMeta: newEventMeta(executionID, "", state, previousHash),
		Error:     errMsg,
	}
}

// IsTerminalEvent reports whether ev ends an execution's event stream
func IsTerminalEvent(ev StateEvent) bool {
	t := ev.Type()
	return t == EventWorkflowCompleted || t == EventWorkflowFailed
}

// eventEnvelope is the wire form; EventType discriminates the variant.
// Field order is fixed for deterministic hashing.
type eventEnvelope struct {
	EventType    EventType     `json:"eventType"`
	ID           string        `json:"id"`
	ExecutionID  string        `json:"executionId"`
	NodeID       string        `json:"nodeId,omitempty"`
	State        WorkflowState `json:"state"`
	Timestamp    time.Time     `json:"timestamp"`
	PreviousHash string        `json:"previousHash,omitempty"`
	Error        string        `json:"error,omitempty"`
	StackTrace   string        `json:"stackTrace,omitempty"`
}

// MarshalEvent serializes an event with its eventType discriminator
func MarshalEvent(ev StateEvent) ([]byte, error) {
	meta := ev.Meta()
	env := eventEnvelope{
		EventType:    ev.Type(),
		ID:           meta.ID,
		ExecutionID:  meta.ExecutionID,
		NodeID:       meta.NodeID,
		State:        meta.State,
		Timestamp:    meta.Timestamp,
		PreviousHash: meta.PreviousHash,
	}
	switch v := ev.(type) {
	case NodeErrorEvent:
		env.Error = v.Error
		env.StackTrace = v.StackTrace
	case WorkflowFailedEvent:
		env.Error = v.Error
	}
	return json.Marshal(env)
}

// UnmarshalEvent restores an event from its wire form
func UnmarshalEvent(data []byte) (StateEvent, error) {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state event: %w", err)
	}
	meta := EventMeta{
		ID:           env.ID,
		ExecutionID:  env.ExecutionID,
		NodeID:       env.NodeID,
		State:        env.State,
		Timestamp:    env.Timestamp,
		PreviousHash: env.PreviousHash,
	}
	switch env.EventType {
	case EventNodeEntered:
		return NodeEnteredEvent{meta}, nil
	case EventNodeExited:
		return NodeExitedEvent{meta}, nil
	case EventNodeError:
		return NodeErrorEvent{EventMeta: meta, Error: env.Error, StackTrace: env.StackTrace}, nil
	case EventWorkflowCompleted:
		return WorkflowCompletedEvent{meta}, nil
	case EventWorkflowFailed:
		return WorkflowFailedEvent{EventMeta: meta, Error: env.Error}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", env.EventType)
	}
}
