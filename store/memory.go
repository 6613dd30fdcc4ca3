package store

import (
	"context"
	"sync"

	"github.com/sicko7947/flowgraph"
)

// MemoryStore implements flowgraph.StateStore in memory. The primary
// map is a sync.Map keyed by snapshot id; the workflow and thread
// indices each keep save order under their own write lock.
type MemoryStore struct {
	states sync.Map // stateID -> flowgraph.WorkflowState

	workflowMu sync.Mutex
	byWorkflow map[string][]string // workflowID -> ordered state ids

	threadMu sync.Mutex
	byThread map[string][]string // threadID -> ordered state ids
}

// NewMemoryStore creates an empty in-memory state store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byWorkflow: make(map[string][]string),
		byThread:   make(map[string][]string),
	}
}

var _ flowgraph.StateStore = (*MemoryStore)(nil)

// Save persists a snapshot. Idempotent by state.ID: a re-save replaces
// the value without touching the indices.
func (s *MemoryStore) Save(_ context.Context, state flowgraph.WorkflowState) error {
	_, existed := s.states.Load(state.ID)
	s.states.Store(state.ID, state)
	if existed {
		return nil
	}

	if state.WorkflowID != "" {
		s.workflowMu.Lock()
		s.byWorkflow[state.WorkflowID] = append(s.byWorkflow[state.WorkflowID], state.ID)
		s.workflowMu.Unlock()
	}
	if state.ThreadID != "" {
		s.threadMu.Lock()
		s.byThread[state.ThreadID] = append(s.byThread[state.ThreadID], state.ID)
		s.threadMu.Unlock()
	}
	return nil
}

// Get returns a snapshot by id
func (s *MemoryStore) Get(_ context.Context, stateID string) (flowgraph.WorkflowState, error) {
	v, ok := s.states.Load(stateID)
	if !ok {
		return flowgraph.WorkflowState{}, flowgraph.ErrStateNotFound
	}
	return v.(flowgraph.WorkflowState), nil
}

// Exists reports whether a snapshot id is present
func (s *MemoryStore) Exists(_ context.Context, stateID string) (bool, error) {
	_, ok := s.states.Load(stateID)
	return ok, nil
}

// ListByWorkflow returns the workflow's snapshots in save order
func (s *MemoryStore) ListByWorkflow(_ context.Context, workflowID string) ([]flowgraph.WorkflowState, error) {
	s.workflowMu.Lock()
	ids := append([]string{}, s.byWorkflow[workflowID]...)
	s.workflowMu.Unlock()
	return s.resolve(ids), nil
}

// ListByThread returns the thread's snapshots in save order
func (s *MemoryStore) ListByThread(_ context.Context, threadID string) ([]flowgraph.WorkflowState, error) {
	s.threadMu.Lock()
	ids := append([]string{}, s.byThread[threadID]...)
	s.threadMu.Unlock()
	return s.resolve(ids), nil
}

// Delete removes a snapshot from the primary map and both indices
func (s *MemoryStore) Delete(_ context.Context, stateID string) error {
	v, ok := s.states.LoadAndDelete(stateID)
	if !ok {
		return nil
	}
	state := v.(flowgraph.WorkflowState)

	if state.WorkflowID != "" {
		s.workflowMu.Lock()
		s.byWorkflow[state.WorkflowID] = removeID(s.byWorkflow[state.WorkflowID], stateID)
		s.workflowMu.Unlock()
	}
	if state.ThreadID != "" {
		s.threadMu.Lock()
		s.byThread[state.ThreadID] = removeID(s.byThread[state.ThreadID], stateID)
		s.threadMu.Unlock()
	}
	return nil
}

func (s *MemoryStore) resolve(ids []string) []flowgraph.WorkflowState {
	states := make([]flowgraph.WorkflowState, 0, len(ids))
	for _, id := range ids {
		if v, ok := s.states.Load(id); ok {
			states = append(states, v.(flowgraph.WorkflowState))
		}
	}
	return states
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}
