package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sicko7947/flowgraph"
)

// Redis key layout
const (
	redisStatePrefix    = "flowgraph:state:"
	redisWorkflowPrefix = "flowgraph:workflow:"
	redisThreadPrefix   = "flowgraph:thread:"
)

// RedisStore implements flowgraph.StateStore on Redis. Snapshots are
// JSON strings keyed by id; the secondary indices are lists preserving
// save order.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a Redis-backed state store
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

var _ flowgraph.StateStore = (*RedisStore)(nil)

func stateKey(stateID string) string {
	return redisStatePrefix + stateID
}

func workflowKey(workflowID string) string {
	return redisWorkflowPrefix + workflowID + ":states"
}

func threadKey(threadID string) string {
	return redisThreadPrefix + threadID + ":states"
}

// Save persists a snapshot. A re-save of a known id replaces the JSON
// value and leaves the index lists alone.
func (s *RedisStore) Save(ctx context.Context, state flowgraph.WorkflowState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow state: %w", err)
	}

	existed, err := s.client.Exists(ctx, stateKey(state.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check workflow state: %w", err)
	}

	if err := s.client.Set(ctx, stateKey(state.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save workflow state: %w", err)
	}
	if existed > 0 {
		return nil
	}

	if state.WorkflowID != "" {
		if err := s.client.RPush(ctx, workflowKey(state.WorkflowID), state.ID).Err(); err != nil {
			return fmt.Errorf("failed to index workflow state: %w", err)
		}
	}
	if state.ThreadID != "" {
		if err := s.client.RPush(ctx, threadKey(state.ThreadID), state.ID).Err(); err != nil {
			return fmt.Errorf("failed to index thread state: %w", err)
		}
	}
	return nil
}

// Get returns a snapshot by id
func (s *RedisStore) Get(ctx context.Context, stateID string) (flowgraph.WorkflowState, error) {
	data, err := s.client.Get(ctx, stateKey(stateID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return flowgraph.WorkflowState{}, flowgraph.ErrStateNotFound
	}
	if err != nil {
		return flowgraph.WorkflowState{}, fmt.Errorf("failed to get workflow state: %w", err)
	}

	var state flowgraph.WorkflowState
	if err := json.Unmarshal(data, &state); err != nil {
		return flowgraph.WorkflowState{}, fmt.Errorf("failed to unmarshal workflow state: %w", err)
	}
	return state, nil
}

// Exists reports whether a snapshot id is present
func (s *RedisStore) Exists(ctx context.Context, stateID string) (bool, error) {
	n, err := s.client.Exists(ctx, stateKey(stateID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check workflow state: %w", err)
	}
	return n > 0, nil
}

// ListByWorkflow returns the workflow's snapshots in save order
func (s *RedisStore) ListByWorkflow(ctx context.Context, workflowID string) ([]flowgraph.WorkflowState, error) {
	return s.resolveList(ctx, workflowKey(workflowID))
}

// ListByThread returns the thread's snapshots in save order
func (s *RedisStore) ListByThread(ctx context.Context, threadID string) ([]flowgraph.WorkflowState, error) {
	return s.resolveList(ctx, threadKey(threadID))
}

func (s *RedisStore) resolveList(ctx context.Context, listKey string) ([]flowgraph.WorkflowState, error) {
	ids, err := s.client.LRange(ctx, listKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read state index: %w", err)
	}
	states := make([]flowgraph.WorkflowState, 0, len(ids))
	for _, id := range ids {
		state, err := s.Get(ctx, id)
		if errors.Is(err, flowgraph.ErrStateNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, nil
}

// Delete removes a snapshot from the value keyspace and both indices
func (s *RedisStore) Delete(ctx context.Context, stateID string) error {
	state, err := s.Get(ctx, stateID)
	if errors.Is(err, flowgraph.ErrStateNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.client.Del(ctx, stateKey(stateID)).Err(); err != nil {
		return fmt.Errorf("failed to delete workflow state: %w", err)
	}
	if state.WorkflowID != "" {
		if err := s.client.LRem(ctx, workflowKey(state.WorkflowID), 0, stateID).Err(); err != nil {
			return fmt.Errorf("failed to unindex workflow state: %w", err)
		}
	}
	if state.ThreadID != "" {
		if err := s.client.LRem(ctx, threadKey(state.ThreadID), 0, stateID).Err(); err != nil {
			return fmt.Errorf("failed to unindex thread state: %w", err)
		}
	}
	return nil
}
