package flowgraph

import "context"

// StateStore persists workflow state snapshots keyed by snapshot id,
// with secondary indices by workflow and thread. All operations must be
// safe under concurrent invocation; consistency is per-operation, no
// multi-operation transactions are promised.
type StateStore interface {
	// Get returns a snapshot by id, or ErrStateNotFound
	Get(ctx context.Context, stateID string) (WorkflowState, error)

	// ListByWorkflow returns all snapshots of a workflow in save order
	ListByWorkflow(ctx context.Context, workflowID string) ([]WorkflowState, error)

	// ListByThread returns all snapshots of a thread in save order
	ListByThread(ctx context.Context, threadID string) ([]WorkflowState, error)

	// Save persists a snapshot, idempotent by state.ID. A re-save of
	// the same id replaces the value without touching the indices.
	Save(ctx context.Context, state WorkflowState) error

	// Delete removes a snapshot from the primary map and both indices
	Delete(ctx context.Context, stateID string) error

	// Exists reports whether a snapshot id is present
	Exists(ctx context.Context, stateID string) (bool, error)
}
