package flowgraph

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowState is the immutable snapshot of a workflow execution.
// Every mutator returns a new instance with a fresh snapshot id;
// unchanged sub-structures are shared between snapshots, so callers
// must never mutate the Data map or Messages slice of a returned state.
type WorkflowState struct {
	ID            string         `json:"id" dynamodbav:"id"`
	WorkflowID    string         `json:"workflowId" dynamodbav:"workflow_id"`
	ThreadID      string         `json:"threadId,omitempty" dynamodbav:"thread_id,omitempty"`
	Step          int            `json:"step" dynamodbav:"step"`
	Data          map[string]any `json:"data" dynamodbav:"data"`
	Messages      []Message      `json:"messages" dynamodbav:"messages"`
	CurrentNodeID string         `json:"currentNodeId,omitempty" dynamodbav:"current_node_id,omitempty"`
	Status        WorkflowStatus `json:"status" dynamodbav:"status"`
	CreatedAt     time.Time      `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt     time.Time      `json:"updatedAt" dynamodbav:"updated_at"`
	Error         string         `json:"error,omitempty" dynamodbav:"error,omitempty"`
}

// NewWorkflowState creates the initial snapshot for a workflow
func NewWorkflowState(workflowID, threadID string) WorkflowState {
	now := time.Now()
	return WorkflowState{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		ThreadID:   threadID,
		Step:       0,
		Data:       map[string]any{},
		Messages:   []Message{},
		Status:     StatusRunning,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// next stamps a fresh snapshot identity on the copy
func (s WorkflowState) next() WorkflowState {
	s.ID = uuid.New().String()
	s.UpdatedAt = time.Now()
	return s
}

// WithData returns a new snapshot with the key set in Data
func (s WorkflowState) WithData(key string, value any) WorkflowState {
	data := make(map[string]any, len(s.Data)+1)
	for k, v := range s.Data {
		data[k] = v
	}
	data[key] = value
	s.Data = data
	return s.next()
}

// WithoutData returns a new snapshot with the key removed from Data
func (s WorkflowState) WithoutData(key string) WorkflowState {
	data := make(map[string]any, len(s.Data))
	for k, v := range s.Data {
		if k != key {
			data[k] = v
		}
	}
	s.Data = data
	return s.next()
}

// WithMessage returns a new snapshot with the message appended
func (s WorkflowState) WithMessage(msg Message) WorkflowState {
	return s.WithMessages(msg)
}

// WithMessages returns a new snapshot with the messages appended in order
func (s WorkflowState) WithMessages(msgs ...Message) WorkflowState {
	messages := make([]Message, 0, len(s.Messages)+len(msgs))
	messages = append(messages, s.Messages...)
	messages = append(messages, msgs...)
	s.Messages = messages
	return s.next()
}

// WithCurrentNode returns a new snapshot marking the node most recently entered
func (s WorkflowState) WithCurrentNode(nodeID string) WorkflowState {
	s.CurrentNodeID = nodeID
	return s.next()
}

// WithStep returns a new snapshot at the given step counter
func (s WorkflowState) WithStep(step int) WorkflowState {
	s.Step = step
	return s.next()
}

// WithStatus returns a new snapshot with the given status
func (s WorkflowState) WithStatus(status WorkflowStatus) WorkflowState {
	s.Status = status
	return s.next()
}

// WithError returns a new snapshot carrying the failure reason. The
// status is forced to FAILED unless the snapshot was already cancelled,
// so that an error is only ever observable on a failed or cancelled state.
func (s WorkflowState) WithError(message string) WorkflowState {
	s.Error = message
	if s.Status != StatusCancelled {
		s.Status = StatusFailed
	}
	return s.next()
}

// Value reads a key from Data
func (s WorkflowState) Value(key string) (any, bool) {
	v, ok := s.Data[key]
	return v, ok
}

// StateValue reads a key from Data with a type assertion
func StateValue[T any](s WorkflowState, key string) (T, bool) {
	var zero T
	v, ok := s.Data[key]
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
