package dynamodb

import (
	"context"
	"fmt"

	"canvas-backend/application/ports"
	"canvas-backend/domain/core/entities"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// UserRepository reads user profiles from the shared table
type UserRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.UserRepository {
	return &UserRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

type userItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	UID       string `dynamodbav:"UID"`
	Name      string `dynamodbav:"Name"`
	Nickname  string `dynamodbav:"Nickname,omitempty"`
	Avatar    string `dynamodbav:"Avatar,omitempty"`
	DeletedAt string `dynamodbav:"DeletedAt,omitempty"`
}

// GetByUID returns the user profile, or (nil, nil) when absent or deleted
func (r *UserRepository) GetByUID(ctx context.Context, uid string) (*entities.User, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("USER#%s", uid)},
			"SK": &types.AttributeValueMemberS{Value: "PROFILE"},
		},
	}

	result, err := r.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item userItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	if item.DeletedAt != "" {
		return nil, nil
	}

	return &entities.User{
		UID:      item.UID,
		Name:     item.Name,
		Nickname: item.Nickname,
		Avatar:   item.Avatar,
	}, nil
}
