package dynamodb

import (
	"context"
	"fmt"
	"time"

	"canvas-backend/application/ports"
	"canvas-backend/domain/core/entities"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// DuplicateRecordRepository writes duplication audit rows. Append-only;
// rows are keyed by target id so one duplication leaves exactly one row.
type DuplicateRecordRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewDuplicateRecordRepository creates a new DuplicateRecordRepository
func NewDuplicateRecordRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.DuplicateRecordRepository {
	return &DuplicateRecordRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

type duplicateItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	UID        string `dynamodbav:"UID"`
	SourceID   string `dynamodbav:"SourceID"`
	TargetID   string `dynamodbav:"TargetID"`
	DupType    string `dynamodbav:"DupEntityType"`
	Status     string `dynamodbav:"Status"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
}

// Create persists one audit row
func (r *DuplicateRecordRepository) Create(ctx context.Context, record *entities.DuplicateRecord) error {
	item := duplicateItem{
		PK:         fmt.Sprintf("USER#%s", record.UID),
		SK:         fmt.Sprintf("DUPLICATE#%s", record.TargetID),
		EntityType: "DUPLICATE",
		UID:        record.UID,
		SourceID:   record.SourceID,
		TargetID:   record.TargetID,
		DupType:    record.EntityType,
		Status:     record.Status,
		CreatedAt:  record.CreatedAt.Format(time.RFC3339Nano),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal duplicate record: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}
	if _, err := r.client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to save duplicate record: %w", err)
	}
	return nil
}
