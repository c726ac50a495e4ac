package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"canvas-backend/application/ports"
	"canvas-backend/domain/core/document"
	"canvas-backend/domain/core/entities"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// batchWriteMax is the DynamoDB BatchWriteItem request limit
const batchWriteMax = 25

// RelationRepository implements ports.RelationRepository on the shared
// table. Relations live under the canvas partition; GSI1 inverts the key
// so an entity's canvases can be found without a scan.
type RelationRepository struct {
	client    *dynamodb.Client
	tableName string
	indexName string
	logger    *zap.Logger
}

// NewRelationRepository creates a new RelationRepository
func NewRelationRepository(client *dynamodb.Client, tableName, indexName string, logger *zap.Logger) ports.RelationRepository {
	return &RelationRepository{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		logger:    logger,
	}
}

// relationItem represents the DynamoDB item structure for a relation
type relationItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	EntityType string `dynamodbav:"EntityType"`
	CanvasID   string `dynamodbav:"CanvasID"`
	RelEntity  string `dynamodbav:"RelEntityID"`
	RelType    string `dynamodbav:"RelEntityType"`
	DeletedAt  string `dynamodbav:"DeletedAt,omitempty"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
}

func relationPK(canvasID string) string { return fmt.Sprintf("CANVAS#%s", canvasID) }
func relationSK(entityID string) string { return fmt.Sprintf("RELATION#%s", entityID) }

func fromRelationItem(item relationItem) *entities.EntityRelation {
	rel := &entities.EntityRelation{
		CanvasID:   item.CanvasID,
		EntityID:   item.RelEntity,
		EntityType: item.RelType,
	}
	if t, err := time.Parse(time.RFC3339Nano, item.CreatedAt); err == nil {
		rel.CreatedAt = t
	}
	if item.DeletedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, item.DeletedAt); err == nil {
			rel.DeletedAt = &t
		}
	}
	return rel
}

// ListActive returns the non-soft-deleted relations for a canvas
func (r *RelationRepository) ListActive(ctx context.Context, canvasID string) ([]*entities.EntityRelation, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		FilterExpression:       aws.String("attribute_not_exists(DeletedAt)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: relationPK(canvasID)},
			":sk": &types.AttributeValueMemberS{Value: "RELATION#"},
		},
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query relations: %w", err)
	}

	relations := make([]*entities.EntityRelation, 0, len(result.Items))
	for _, raw := range result.Items {
		var item relationItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Failed to unmarshal relation item", zap.Error(err))
			continue
		}
		relations = append(relations, fromRelationItem(item))
	}
	return relations, nil
}

// ListCanvasIDsForEntities returns the distinct canvas ids carrying an
// active relation to any of the given entities, via the inverted index.
func (r *RelationRepository) ListCanvasIDsForEntities(ctx context.Context, refs []document.EntityRef) ([]string, error) {
	seen := make(map[string]bool)
	var canvasIDs []string

	for _, ref := range refs {
		input := &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String(r.indexName),
			KeyConditionExpression: aws.String("GSI1PK = :pk"),
			FilterExpression:       aws.String("attribute_not_exists(DeletedAt)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("ENTITY#%s", ref.EntityID)},
			},
		}

		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query entity relations: %w", err)
		}
		for _, raw := range result.Items {
			var item relationItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Failed to unmarshal relation item", zap.Error(err))
				continue
			}
			if !seen[item.CanvasID] {
				seen[item.CanvasID] = true
				canvasIDs = append(canvasIDs, item.CanvasID)
			}
		}
	}
	return canvasIDs, nil
}

// CreateMany writes one relation item per ref in batches. Re-creating a
// soft-deleted relation overwrites it without the DeletedAt stamp, which
// is exactly the revive semantics reconciliation needs.
func (r *RelationRepository) CreateMany(ctx context.Context, canvasID string, refs []document.EntityRef) error {
	if len(refs) == 0 {
		return nil
	}
	now := time.Now().Format(time.RFC3339Nano)

	var writes []types.WriteRequest
	for _, ref := range refs {
		item := relationItem{
			PK:         relationPK(canvasID),
			SK:         relationSK(ref.EntityID),
			GSI1PK:     fmt.Sprintf("ENTITY#%s", ref.EntityID),
			GSI1SK:     relationPK(canvasID),
			EntityType: "RELATION",
			CanvasID:   canvasID,
			RelEntity:  ref.EntityID,
			RelType:    ref.EntityType,
			CreatedAt:  now,
		}
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return fmt.Errorf("failed to marshal relation: %w", err)
		}
		writes = append(writes, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: av},
		})
	}

	for start := 0; start < len(writes); start += batchWriteMax {
		end := start + batchWriteMax
		if end > len(writes) {
			end = len(writes)
		}
		batch := writes[start:end]

		for len(batch) > 0 {
			out, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{r.tableName: batch},
			})
			if err != nil {
				return fmt.Errorf("failed to batch write relations: %w", err)
			}
			batch = out.UnprocessedItems[r.tableName]
		}
	}
	return nil
}

// SoftDeleteMany stamps DeletedAt on each matching relation
func (r *RelationRepository) SoftDeleteMany(ctx context.Context, canvasID string, refs []document.EntityRef) error {
	now := time.Now().Format(time.RFC3339Nano)
	for _, ref := range refs {
		input := &dynamodb.UpdateItemInput{
			TableName: aws.String(r.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: relationPK(canvasID)},
				"SK": &types.AttributeValueMemberS{Value: relationSK(ref.EntityID)},
			},
			UpdateExpression:    aws.String("SET DeletedAt = :deletedAt"),
			ConditionExpression: aws.String("attribute_exists(PK)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":deletedAt": &types.AttributeValueMemberS{Value: now},
			},
		}
		if _, err := r.client.UpdateItem(ctx, input); err != nil {
			var conditionalCheckFailed *types.ConditionalCheckFailedException
			if errors.As(err, &conditionalCheckFailed) {
				// Relation never existed; nothing to retire.
				continue
			}
			return fmt.Errorf("failed to soft delete relation: %w", err)
		}
	}
	return nil
}

// SoftDeleteAll retires every active relation for the canvas
func (r *RelationRepository) SoftDeleteAll(ctx context.Context, canvasID string) error {
	relations, err := r.ListActive(ctx, canvasID)
	if err != nil {
		return err
	}
	refs := make([]document.EntityRef, 0, len(relations))
	for _, rel := range relations {
		refs = append(refs, document.EntityRef{EntityID: rel.EntityID, EntityType: rel.EntityType})
	}
	return r.SoftDeleteMany(ctx, canvasID, refs)
}
