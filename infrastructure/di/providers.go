package di

import (
	"context"
	"fmt"

	"canvas-backend/application/ports"
	"canvas-backend/infrastructure/acl"
	"canvas-backend/infrastructure/config"
	"canvas-backend/infrastructure/messaging"
	"canvas-backend/infrastructure/messaging/eventbridge"
	memqueue "canvas-backend/infrastructure/messaging/memory"
	sqsqueue "canvas-backend/infrastructure/messaging/sqs"
	"canvas-backend/infrastructure/persistence/dynamodb"
	memstore "canvas-backend/infrastructure/persistence/memory"
	s3store "canvas-backend/infrastructure/persistence/s3"
	"canvas-backend/infrastructure/search"
	"canvas-backend/pkg/auth"
	"canvas-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// metricsNamespace is the CloudWatch namespace for canvas metrics
const metricsNamespace = "CanvasBackend"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideS3Client creates an S3 client
func ProvideS3Client(awsCfg aws.Config) *awss3.Client {
	return awss3.NewFromConfig(awsCfg)
}

// ProvideSQSClient creates an SQS client
func ProvideSQSClient(awsCfg aws.Config) *awssqs.Client {
	return awssqs.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideMetrics creates the metrics recorder. Without ENABLE_METRICS the
// recorder logs at debug level instead of calling CloudWatch.
func ProvideMetrics(cfg *config.Config, client *awscloudwatch.Client, logger *zap.Logger) *observability.Metrics {
	if !cfg.EnableMetrics {
		return observability.NewMetrics(metricsNamespace, nil, logger)
	}
	return observability.NewMetrics(metricsNamespace, client, logger)
}

// ProvideTracer creates the X-Ray job tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer("canvas-backend", cfg.EnableTracing)
}

// ProvideCanvasRepository creates the canvas repository for the configured
// store driver
func ProvideCanvasRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.CanvasRepository {
	if cfg.StoreDriver == "memory" {
		return memstore.NewCanvasRepository()
	}
	return dynamodb.NewCanvasRepository(client, cfg.DynamoDBTable, cfg.IndexName, logger)
}

// ProvideRelationRepository creates the entity-relation repository
func ProvideRelationRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.RelationRepository {
	if cfg.StoreDriver == "memory" {
		return memstore.NewRelationRepository()
	}
	return dynamodb.NewRelationRepository(client, cfg.DynamoDBTable, cfg.IndexName, logger)
}

// ProvideUserRepository creates the user repository
func ProvideUserRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.UserRepository {
	if cfg.StoreDriver == "memory" {
		return memstore.NewUserRepository()
	}
	return dynamodb.NewUserRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideDuplicateRecordRepository creates the duplication audit repository
func ProvideDuplicateRecordRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.DuplicateRecordRepository {
	if cfg.StoreDriver == "memory" {
		return memstore.NewDuplicateRecordRepository()
	}
	return dynamodb.NewDuplicateRecordRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideBlobStore creates the document state store for the configured driver
func ProvideBlobStore(cfg *config.Config, client *awss3.Client, logger *zap.Logger) (ports.BlobStore, error) {
	switch cfg.BlobDriver {
	case "s3":
		return s3store.NewBlobStore(client, cfg.StateBucket, logger), nil
	case "memory":
		return memstore.NewBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.BlobDriver)
	}
}

// ProvideDistributedLock creates the reconciliation lock. An empty lock
// table name selects the in-process lock, which is only safe for a single
// instance.
func ProvideDistributedLock(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.DistributedLock {
	if cfg.LockTableName == "" {
		return memstore.NewLock(cfg.LockTTL)
	}
	return dynamodb.NewDistributedLock(client, cfg.LockTableName, cfg.LockTTL, logger)
}

// ProvideJobRegistry creates the empty job registry. Handlers are attached
// after the services exist, see RegisterJobHandlers.
func ProvideJobRegistry() *messaging.Registry {
	return messaging.NewRegistry()
}

// QueueInfra bundles the task queue with its driver-specific runtime. The
// consumer is nil for the in-memory driver; the memory queue is nil for SQS.
type QueueInfra struct {
	Queue    ports.TaskQueue
	Consumer *sqsqueue.Consumer
	Memory   *memqueue.Queue
}

// ProvideQueueInfra creates the task queue for the configured driver
func ProvideQueueInfra(cfg *config.Config, client *awssqs.Client, registry *messaging.Registry, logger *zap.Logger) (QueueInfra, error) {
	switch cfg.QueueDriver {
	case "sqs":
		if cfg.QueueURL == "" {
			return QueueInfra{}, fmt.Errorf("QUEUE_URL is required for the sqs queue driver")
		}
		queue := sqsqueue.NewTaskQueue(client, cfg.QueueURL, logger)
		return QueueInfra{
			Queue:    queue,
			Consumer: sqsqueue.NewConsumer(client, cfg.QueueURL, queue, registry, logger),
		}, nil
	case "memory":
		queue := memqueue.NewQueue(registry, logger)
		return QueueInfra{Queue: queue, Memory: queue}, nil
	default:
		return QueueInfra{}, fmt.Errorf("unknown queue driver %q", cfg.QueueDriver)
	}
}

// ProvideTaskQueue exposes the queue port from the driver bundle
func ProvideTaskQueue(infra QueueInfra) ports.TaskQueue {
	return infra.Queue
}

// ProvideEventPublisher creates the domain event publisher. Without a bus
// name events are dropped.
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		return eventbridge.NopPublisher{}
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideFulltextIndex creates the search index behind its circuit breaker
func ProvideFulltextIndex(logger *zap.Logger) ports.FulltextIndex {
	return search.NewBreakerIndex(search.NewMemoryIndex(), logger)
}

// ProvideKnowledgeAdapter creates the knowledge subsystem client. Without
// KNOWLEDGE_API_URL the local adapter mints ids in process.
func ProvideKnowledgeAdapter(cfg *config.Config, logger *zap.Logger) (ports.EntityDuplicator, ports.ActionResultDuplicator, ports.QuotaService) {
	if cfg.KnowledgeAPIURL == "" {
		adapter := acl.NewLocalKnowledgeAdapter()
		return adapter, adapter, adapter
	}
	adapter := acl.NewKnowledgeAdapter(cfg.KnowledgeAPIURL, logger)
	return adapter, adapter, adapter
}

// ProvideEntityDuplicator exposes the entity duplication port
func ProvideEntityDuplicator(cfg *config.Config, logger *zap.Logger) ports.EntityDuplicator {
	duplicator, _, _ := ProvideKnowledgeAdapter(cfg, logger)
	return duplicator
}

// ProvideActionResultDuplicator exposes the action result duplication port
func ProvideActionResultDuplicator(cfg *config.Config, logger *zap.Logger) ports.ActionResultDuplicator {
	_, duplicator, _ := ProvideKnowledgeAdapter(cfg, logger)
	return duplicator
}

// ProvideQuotaService exposes the storage quota port
func ProvideQuotaService(cfg *config.Config, logger *zap.Logger) ports.QuotaService {
	_, _, quota := ProvideKnowledgeAdapter(cfg, logger)
	return quota
}

// ProvideJWTValidator creates the token validator. In Lambda mode the API
// Gateway authorizer has already validated the token, so no validator is
// built when no secret is configured.
func ProvideJWTValidator(cfg *config.Config, logger *zap.Logger) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		if cfg.IsLambda {
			return nil, nil
		}
		secret = "local-development-secret"
		logger.Warn("JWT_SECRET not set, using development secret")
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: secret,
		Issuer:    cfg.JWTIssuer,
	})
}
