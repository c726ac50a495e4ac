package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"canvas-backend/application/ports"
	"canvas-backend/domain/core/entities"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// CanvasRepository implements ports.CanvasRepository on a single DynamoDB
// table. Records live under the owning user's partition; GSI1 carries a
// CANVASID projection for owner-agnostic lookups.
type CanvasRepository struct {
	client    *dynamodb.Client
	tableName string
	indexName string
	logger    *zap.Logger
}

// NewCanvasRepository creates a new CanvasRepository
func NewCanvasRepository(client *dynamodb.Client, tableName, indexName string, logger *zap.Logger) ports.CanvasRepository {
	return &CanvasRepository{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		logger:    logger,
	}
}

// canvasItem represents the DynamoDB item structure for a canvas record
type canvasItem struct {
	PK                string `dynamodbav:"PK"`
	SK                string `dynamodbav:"SK"`
	GSI1PK            string `dynamodbav:"GSI1PK"`
	GSI1SK            string `dynamodbav:"GSI1SK"`
	EntityType        string `dynamodbav:"EntityType"`
	CanvasID          string `dynamodbav:"CanvasID"`
	UID               string `dynamodbav:"UID"`
	Title             string `dynamodbav:"Title"`
	Status            string `dynamodbav:"Status"`
	StateStorageKey   string `dynamodbav:"StateStorageKey"`
	MinimapStorageKey string `dynamodbav:"MinimapStorageKey,omitempty"`
	ProjectID         string `dynamodbav:"ProjectID,omitempty"`
	DeletedAt         string `dynamodbav:"DeletedAt,omitempty"`
	CreatedAt         string `dynamodbav:"CreatedAt"`
	UpdatedAt         string `dynamodbav:"UpdatedAt"`
}

func canvasPK(uid string) string      { return fmt.Sprintf("USER#%s", uid) }
func canvasSK(canvasID string) string { return fmt.Sprintf("CANVAS#%s", canvasID) }

func toCanvasItem(canvas *entities.Canvas) canvasItem {
	item := canvasItem{
		PK:                canvasPK(canvas.UID),
		SK:                canvasSK(canvas.CanvasID),
		GSI1PK:            fmt.Sprintf("CANVASID#%s", canvas.CanvasID),
		GSI1SK:            "METADATA",
		EntityType:        "CANVAS",
		CanvasID:          canvas.CanvasID,
		UID:               canvas.UID,
		Title:             canvas.Title,
		Status:            string(canvas.Status),
		StateStorageKey:   canvas.StateStorageKey,
		MinimapStorageKey: canvas.MinimapStorageKey,
		ProjectID:         canvas.ProjectID,
		CreatedAt:         canvas.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:         canvas.UpdatedAt.Format(time.RFC3339Nano),
	}
	if canvas.DeletedAt != nil {
		item.DeletedAt = canvas.DeletedAt.Format(time.RFC3339Nano)
	}
	return item
}

func fromCanvasItem(item canvasItem) (*entities.Canvas, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("bad CreatedAt on canvas %s: %w", item.CanvasID, err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("bad UpdatedAt on canvas %s: %w", item.CanvasID, err)
	}
	canvas := &entities.Canvas{
		CanvasID:          item.CanvasID,
		UID:               item.UID,
		Title:             item.Title,
		Status:            entities.CanvasStatus(item.Status),
		StateStorageKey:   item.StateStorageKey,
		MinimapStorageKey: item.MinimapStorageKey,
		ProjectID:         item.ProjectID,
		CreatedAt:         createdAt,
		UpdatedAt:         updatedAt,
	}
	if item.DeletedAt != "" {
		deletedAt, err := time.Parse(time.RFC3339Nano, item.DeletedAt)
		if err != nil {
			return nil, fmt.Errorf("bad DeletedAt on canvas %s: %w", item.CanvasID, err)
		}
		canvas.DeletedAt = &deletedAt
	}
	return canvas, nil
}

// Create persists a new canvas record
func (r *CanvasRepository) Create(ctx context.Context, canvas *entities.Canvas) error {
	av, err := attributevalue.MarshalMap(toCanvasItem(canvas))
	if err != nil {
		return fmt.Errorf("failed to marshal canvas: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	}
	if _, err := r.client.PutItem(ctx, input); err != nil {
		r.logger.Error("Failed to save canvas to DynamoDB",
			zap.Error(err),
			zap.String("canvasId", canvas.CanvasID),
		)
		return fmt.Errorf("failed to save canvas: %w", err)
	}

	return nil
}

// GetByID retrieves a canvas by id regardless of owner, via GSI1
func (r *CanvasRepository) GetByID(ctx context.Context, canvasID string, includeDeleted bool) (*entities.Canvas, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(r.indexName),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND GSI1SK = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("CANVASID#%s", canvasID)},
			":sk": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		Limit: aws.Int32(1),
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query canvas: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, nil
	}

	var item canvasItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal canvas: %w", err)
	}

	canvas, err := fromCanvasItem(item)
	if err != nil {
		return nil, err
	}
	if canvas.IsDeleted() && !includeDeleted {
		return nil, nil
	}
	return canvas, nil
}

// GetByIDForUser retrieves a live canvas owned by uid
func (r *CanvasRepository) GetByIDForUser(ctx context.Context, canvasID, uid string) (*entities.Canvas, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: canvasPK(uid)},
			"SK": &types.AttributeValueMemberS{Value: canvasSK(canvasID)},
		},
	}

	result, err := r.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get canvas: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item canvasItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal canvas: %w", err)
	}

	canvas, err := fromCanvasItem(item)
	if err != nil {
		return nil, err
	}
	if canvas.IsDeleted() {
		return nil, nil
	}
	return canvas, nil
}

// List returns the user's live canvases, newest first. Pagination happens
// after the query: a user's canvas count stays small enough that one
// partition query covers it.
func (r *CanvasRepository) List(ctx context.Context, uid, projectID string, page, pageSize int) ([]*entities.Canvas, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		FilterExpression:       aws.String("attribute_not_exists(DeletedAt)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: canvasPK(uid)},
			":sk": &types.AttributeValueMemberS{Value: "CANVAS#"},
		},
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query canvases: %w", err)
	}

	canvases := make([]*entities.Canvas, 0, len(result.Items))
	for _, raw := range result.Items {
		var item canvasItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("Failed to unmarshal canvas item", zap.Error(err))
			continue
		}
		canvas, err := fromCanvasItem(item)
		if err != nil {
			r.logger.Warn("Skipping malformed canvas item", zap.Error(err))
			continue
		}
		if projectID != "" && canvas.ProjectID != projectID {
			continue
		}
		canvases = append(canvases, canvas)
	}

	sort.Slice(canvases, func(i, j int) bool {
		return canvases[i].UpdatedAt.After(canvases[j].UpdatedAt)
	})

	start := (page - 1) * pageSize
	if start >= len(canvases) {
		return []*entities.Canvas{}, nil
	}
	end := start + pageSize
	if end > len(canvases) {
		end = len(canvases)
	}
	return canvases[start:end], nil
}

// Update overwrites the canvas record
func (r *CanvasRepository) Update(ctx context.Context, canvas *entities.Canvas) error {
	av, err := attributevalue.MarshalMap(toCanvasItem(canvas))
	if err != nil {
		return fmt.Errorf("failed to marshal canvas: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}
	if _, err := r.client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to update canvas: %w", err)
	}
	return nil
}

// UpdateStatus flips only the canvas status
func (r *CanvasRepository) UpdateStatus(ctx context.Context, canvasID string, status entities.CanvasStatus) error {
	canvas, err := r.GetByID(ctx, canvasID, true)
	if err != nil {
		return err
	}
	if canvas == nil {
		return fmt.Errorf("canvas not found: %s", canvasID)
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: canvasPK(canvas.UID)},
			"SK": &types.AttributeValueMemberS{Value: canvasSK(canvasID)},
		},
		UpdateExpression: aws.String("SET #status = :status, UpdatedAt = :updatedAt"),
		ExpressionAttributeNames: map[string]string{
			"#status": "Status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":    &types.AttributeValueMemberS{Value: string(status)},
			":updatedAt": &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339Nano)},
		},
	}
	if _, err := r.client.UpdateItem(ctx, input); err != nil {
		return fmt.Errorf("failed to update canvas status: %w", err)
	}
	return nil
}

// SoftDelete stamps DeletedAt on the record. Idempotent: a second call
// overwrites the stamp and nothing else.
func (r *CanvasRepository) SoftDelete(ctx context.Context, canvasID string) error {
	canvas, err := r.GetByID(ctx, canvasID, true)
	if err != nil {
		return err
	}
	if canvas == nil {
		return fmt.Errorf("canvas not found: %s", canvasID)
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: canvasPK(canvas.UID)},
			"SK": &types.AttributeValueMemberS{Value: canvasSK(canvasID)},
		},
		UpdateExpression: aws.String("SET DeletedAt = :deletedAt, UpdatedAt = :deletedAt"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":deletedAt": &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339Nano)},
		},
	}
	if _, err := r.client.UpdateItem(ctx, input); err != nil {
		return fmt.Errorf("failed to soft delete canvas: %w", err)
	}

	r.logger.Debug("Canvas soft-deleted",
		zap.String("canvasId", canvasID),
	)
	return nil
}
