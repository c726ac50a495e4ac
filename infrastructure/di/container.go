package di

import (
	"canvas-backend/application/services"
	"canvas-backend/infrastructure/config"
	"canvas-backend/infrastructure/messaging"
	"canvas-backend/pkg/auth"
	"canvas-backend/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Tracer       *observability.Tracer
	Registry     *messaging.Registry
	QueueInfra   QueueInfra
	JWTValidator *auth.JWTValidator

	CanvasService  *services.CanvasService
	NodeService    *services.NodeAdditionService
	Reconciler     *services.RelationReconciler
	Duplication    *services.DuplicationService
	CleanupService *services.CleanupService
}

// NewContainer assembles the container and attaches the queue job handlers
func NewContainer(
	cfg *config.Config,
	logger *zap.Logger,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
	registry *messaging.Registry,
	queueInfra QueueInfra,
	jwtValidator *auth.JWTValidator,
	canvasService *services.CanvasService,
	nodeService *services.NodeAdditionService,
	reconciler *services.RelationReconciler,
	duplication *services.DuplicationService,
	cleanupService *services.CleanupService,
) *Container {
	RegisterJobHandlers(registry, nodeService, cleanupService, tracer)

	return &Container{
		Config:         cfg,
		Logger:         logger,
		Metrics:        metrics,
		Tracer:         tracer,
		Registry:       registry,
		QueueInfra:     queueInfra,
		JWTValidator:   jwtValidator,
		CanvasService:  canvasService,
		NodeService:    nodeService,
		Reconciler:     reconciler,
		Duplication:    duplication,
		CleanupService: cleanupService,
	}
}
