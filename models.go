package flowgraph

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowStatus represents the current state of a workflow execution
type WorkflowStatus string

const (
	StatusRunning   WorkflowStatus = "RUNNING"
	StatusCompleted WorkflowStatus = "COMPLETED"
	StatusFailed    WorkflowStatus = "FAILED"
	StatusCancelled WorkflowStatus = "CANCELLED"
)

// IsTerminal returns true if the status is a final state
func (s WorkflowStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// String returns the string representation
func (s WorkflowStatus) String() string {
	return string(s)
}

// ToolCallStatus represents the lifecycle of a tool invocation
type ToolCallStatus string

const (
	ToolCallPending   ToolCallStatus = "PENDING"
	ToolCallRunning   ToolCallStatus = "RUNNING"
	ToolCallCompleted ToolCallStatus = "COMPLETED"
	ToolCallError     ToolCallStatus = "ERROR"
)

// String returns the string representation
func (s ToolCallStatus) String() string {
	return string(s)
}

// ToolCall records one tool invocation requested by a model
type ToolCall struct {
	ID          string         `json:"id" dynamodbav:"id"`
	Name        string         `json:"name" dynamodbav:"name"`
	Arguments   string         `json:"arguments" dynamodbav:"arguments"`
	Output      string         `json:"output,omitempty" dynamodbav:"output,omitempty"`
	Status      ToolCallStatus `json:"status" dynamodbav:"status"`
	CompletedAt *time.Time     `json:"completedAt,omitempty" dynamodbav:"completed_at,omitempty"`
}

// NewToolCall creates a pending tool call
func NewToolCall(name, arguments string) ToolCall {
	return ToolCall{
		ID:        uuid.New().String(),
		Name:      name,
		Arguments: arguments,
		Status:    ToolCallPending,
	}
}

// WithStatus returns a copy with the given status
func (tc ToolCall) WithStatus(status ToolCallStatus) ToolCall {
	tc.Status = status
	return tc
}

// WithOutput returns a completed copy carrying the tool output
func (tc ToolCall) WithOutput(output string) ToolCall {
	now := time.Now()
	tc.Output = output
	tc.Status = ToolCallCompleted
	tc.CompletedAt = &now
	return tc
}

// Message is one entry of the conversation history. Messages are
// immutable; mutators return a new instance.
type Message struct {
	ID        string     `json:"id" dynamodbav:"id"`
	Role      string     `json:"role" dynamodbav:"role"`
	Content   string     `json:"content" dynamodbav:"content"`
	Timestamp time.Time  `json:"timestamp" dynamodbav:"timestamp"`
	ToolCalls []ToolCall `json:"toolCalls,omitempty" dynamodbav:"tool_calls,omitempty"`
	Name      string     `json:"name,omitempty" dynamodbav:"name,omitempty"`
}

// NewMessage creates a message with a fresh id and timestamp
func NewMessage(role, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// WithToolCalls returns a copy of the message carrying the given tool calls
func (m Message) WithToolCalls(calls ...ToolCall) Message {
	copied := make([]ToolCall, 0, len(m.ToolCalls)+len(calls))
	copied = append(copied, m.ToolCalls...)
	copied = append(copied, calls...)
	m.ToolCalls = copied
	return m
}

// WithName returns a copy of the message with the given participant name
func (m Message) WithName(name string) Message {
	m.Name = name
	return m
}
