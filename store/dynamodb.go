package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/sicko7947/flowgraph"
)

// DynamoDBStore implements flowgraph.StateStore on a single DynamoDB
// table. The workflow and thread secondary indices are GSIs, so index
// maintenance rides on the item writes.
type DynamoDBStore struct {
	client    DynamoDBClient
	tableName string
}

// NewDynamoDBStore creates a DynamoDB-backed state store
func NewDynamoDBStore(client DynamoDBClient, tableName string) *DynamoDBStore {
	return &DynamoDBStore{
		client:    client,
		tableName: tableName,
	}
}

var _ flowgraph.StateStore = (*DynamoDBStore)(nil)

// Save persists a snapshot, replacing any prior item with the same id
func (s *DynamoDBStore) Save(ctx context.Context, state flowgraph.WorkflowState) error {
	item, err := attributevalue.MarshalMap(state)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow state: %w", err)
	}

	item[AttrPK] = &types.AttributeValueMemberS{Value: statePK(state.ID)}
	item[AttrSK] = &types.AttributeValueMemberS{Value: stateSK()}
	item[AttrEntityType] = &types.AttributeValueMemberS{Value: EntityTypeState}

	updatedAt := state.UpdatedAt.UTC().Format(time.RFC3339Nano)
	if state.WorkflowID != "" {
		item[AttrGSI1PK] = &types.AttributeValueMemberS{Value: stateGSI1PK(state.WorkflowID)}
		item[AttrGSI1SK] = &types.AttributeValueMemberS{Value: stateGSI1SK(updatedAt, state.ID)}
	}
	if state.ThreadID != "" {
		item[AttrGSI2PK] = &types.AttributeValueMemberS{Value: stateGSI2PK(state.ThreadID)}
		item[AttrGSI2SK] = &types.AttributeValueMemberS{Value: stateGSI2SK(updatedAt, state.ID)}
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save workflow state: %w", err)
	}
	return nil
}

// Get returns a snapshot by id
func (s *DynamoDBStore) Get(ctx context.Context, stateID string) (flowgraph.WorkflowState, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			AttrPK: &types.AttributeValueMemberS{Value: statePK(stateID)},
			AttrSK: &types.AttributeValueMemberS{Value: stateSK()},
		},
	})
	if err != nil {
		return flowgraph.WorkflowState{}, fmt.Errorf("failed to get workflow state: %w", err)
	}
	if result.Item == nil {
		return flowgraph.WorkflowState{}, flowgraph.ErrStateNotFound
	}

	var state flowgraph.WorkflowState
	if err := attributevalue.UnmarshalMap(result.Item, &state); err != nil {
		return flowgraph.WorkflowState{}, fmt.Errorf("failed to unmarshal workflow state: %w", err)
	}
	return state, nil
}

// Exists reports whether a snapshot id is present
func (s *DynamoDBStore) Exists(ctx context.Context, stateID string) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(s.tableName),
		ProjectionExpression: aws.String(AttrPK),
		Key: map[string]types.AttributeValue{
			AttrPK: &types.AttributeValueMemberS{Value: statePK(stateID)},
			AttrSK: &types.AttributeValueMemberS{Value: stateSK()},
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to check workflow state: %w", err)
	}
	return result.Item != nil, nil
}

// ListByWorkflow queries the workflow GSI in save order
func (s *DynamoDBStore) ListByWorkflow(ctx context.Context, workflowID string) ([]flowgraph.WorkflowState, error) {
	return s.queryIndex(ctx, IndexWorkflow, AttrGSI1PK, stateGSI1PK(workflowID))
}

// ListByThread queries the thread GSI in save order
func (s *DynamoDBStore) ListByThread(ctx context.Context, threadID string) ([]flowgraph.WorkflowState, error) {
	return s.queryIndex(ctx, IndexThread, AttrGSI2PK, stateGSI2PK(threadID))
}

func (s *DynamoDBStore) queryIndex(ctx context.Context, index, keyAttr, keyValue string) ([]flowgraph.WorkflowState, error) {
	var states []flowgraph.WorkflowState
	var lastKey map[string]types.AttributeValue

	for {
		result, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			IndexName:              aws.String(index),
			KeyConditionExpression: aws.String("#pk = :pk"),
			ExpressionAttributeNames: map[string]string{
				"#pk": keyAttr,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: keyValue},
			},
			ExclusiveStartKey: lastKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query index %s: %w", index, err)
		}

		for _, item := range result.Items {
			var state flowgraph.WorkflowState
			if err := attributevalue.UnmarshalMap(item, &state); err != nil {
				return nil, fmt.Errorf("failed to unmarshal workflow state: %w", err)
			}
			states = append(states, state)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		lastKey = result.LastEvaluatedKey
	}
	return states, nil
}

// Delete removes a snapshot; the GSIs drop the item with it
func (s *DynamoDBStore) Delete(ctx context.Context, stateID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			AttrPK: &types.AttributeValueMemberS{Value: statePK(stateID)},
			AttrSK: &types.AttributeValueMemberS{Value: stateSK()},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete workflow state: %w", err)
	}
	return nil
}
