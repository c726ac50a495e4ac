//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"canvas-backend/application/services"
	"canvas-backend/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideS3Client,
	ProvideSQSClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideMetrics,
	ProvideTracer,
	ProvideCanvasRepository,
	ProvideRelationRepository,
	ProvideUserRepository,
	ProvideDuplicateRecordRepository,
	ProvideBlobStore,
	ProvideDistributedLock,
	ProvideJobRegistry,
	ProvideQueueInfra,
	ProvideTaskQueue,
	ProvideEventPublisher,
	ProvideFulltextIndex,
	ProvideEntityDuplicator,
	ProvideActionResultDuplicator,
	ProvideQuotaService,
	ProvideJWTValidator,
	services.NewCanvasService,
	services.NewNodeAdditionService,
	services.NewRelationReconciler,
	services.NewDuplicationService,
	services.NewCleanupService,
	NewContainer,
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
