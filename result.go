package flowgraph

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Result type tags used as the serialized discriminator
const (
	ResultTypeSuccess = "success"
	ResultTypeFailure = "failure"
	ResultTypeSkipped = "skipped"
)

// ResultMeta is the identity shared by every node result
type ResultMeta struct {
	ID          string    `json:"id"`
	NodeID      string    `json:"nodeId"`
	ExecutionID string    `json:"executionId,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NodeResult is the outcome of one node invocation. It is a closed sum:
// Success, Failure or Skipped.
type NodeResult interface {
	Meta() ResultMeta
	ResultType() string
	sealedResult()
}

// Success carries the state the node produced
type Success struct {
	ResultMeta
	OutputState WorkflowState `json:"outputState"`
}

// Failure carries the reason a node gave up
type Failure struct {
	ResultMeta
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Skipped records that the node declined to run
type Skipped struct {
	ResultMeta
	Reason string `json:"reason"`
}

func (m ResultMeta) Meta() ResultMeta { return m }

func (Success) ResultType() string { return ResultTypeSuccess }
func (Failure) ResultType() string { return ResultTypeFailure }
func (Skipped) ResultType() string { return ResultTypeSkipped }

func (Success) sealedResult() {}
func (Failure) sealedResult() {}
func (Skipped) sealedResult() {}

func newResultMeta(nodeID string) ResultMeta {
	return ResultMeta{
		ID:        uuid.New().String(),
		NodeID:    nodeID,
		Timestamp: time.Now(),
	}
}

// NewSuccess creates a Success result carrying the output state
func NewSuccess(nodeID string, outputState WorkflowState) Success {
	return Success{ResultMeta: newResultMeta(nodeID), OutputState: outputState}
}

// NewFailure creates a Failure result. err may be nil.
func NewFailure(nodeID, reason string, err error) Failure {
	return Failure{ResultMeta: newResultMeta(nodeID), Reason: reason, Err: err}
}

// NewSkipped creates a Skipped result
func NewSkipped(nodeID, reason string) Skipped {
	return Skipped{ResultMeta: newResultMeta(nodeID), Reason: reason}
}

// WithExecutionID stamps the execution onto a result's copy
func WithExecutionID(r NodeResult, executionID string) NodeResult {
	switch v := r.(type) {
	case Success:
		v.ExecutionID = executionID
		return v
	case Failure:
		v.ExecutionID = executionID
		return v
	case Skipped:
		v.ExecutionID = executionID
		return v
	default:
		return r
	}
}

// resultEnvelope is the wire form; Type discriminates the variant
type resultEnvelope struct {
	Type        string         `json:"type"`
	ID          string         `json:"id"`
	NodeID      string         `json:"nodeId"`
	ExecutionID string         `json:"executionId,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	OutputState *WorkflowState `json:"outputState,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// MarshalNodeResult serializes a result with its type discriminator
func MarshalNodeResult(r NodeResult) ([]byte, error) {
	meta := r.Meta()
	env := resultEnvelope{
		Type:        r.ResultType(),
		ID:          meta.ID,
		NodeID:      meta.NodeID,
		ExecutionID: meta.ExecutionID,
		Timestamp:   meta.Timestamp,
	}
	switch v := r.(type) {
	case Success:
		state := v.OutputState
		env.OutputState = &state
	case Failure:
		env.Reason = v.Reason
		if v.Err != nil {
			env.Error = v.Err.Error()
		}
	case Skipped:
		env.Reason = v.Reason
	}
	return json.Marshal(env)
}

// UnmarshalNodeResult restores a result from its wire form
func UnmarshalNodeResult(data []byte) (NodeResult, error) {
	var env resultEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal node result: %w", err)
	}
	meta := ResultMeta{
		ID:          env.ID,
		NodeID:      env.NodeID,
		ExecutionID: env.ExecutionID,
		Timestamp:   env.Timestamp,
	}
	switch env.Type {
	case ResultTypeSuccess:
		if env.OutputState == nil {
			return nil, fmt.Errorf("success result %s has no output state", env.ID)
		}
		return Success{ResultMeta: meta, OutputState: *env.OutputState}, nil
	case ResultTypeFailure:
		var err error
		if env.Error != "" {
			err = fmt.Errorf("%s", env.Error)
		}
		return Failure{ResultMeta: meta, Reason: env.Reason, Err: err}, nil
	case ResultTypeSkipped:
		return Skipped{ResultMeta: meta, Reason: env.Reason}, nil
	default:
		return nil, fmt.Errorf("unknown node result type %q", env.Type)
	}
}
