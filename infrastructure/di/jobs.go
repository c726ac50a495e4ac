package di

import (
	"context"
	"encoding/json"

	"canvas-backend/application/services"
	"canvas-backend/domain/core/document"
	"canvas-backend/infrastructure/messaging"
	"canvas-backend/pkg/observability"
)

// RegisterJobHandlers binds every queue job to its handler. The worker and
// the in-memory queue both dispatch through this registry. Called after the
// container is built because the in-memory queue holds the registry while
// the services hold the queue.
func RegisterJobHandlers(
	registry *messaging.Registry,
	nodeService *services.NodeAdditionService,
	cleanupService *services.CleanupService,
	tracer *observability.Tracer,
) {
	registry.Register(services.JobVerifyNodeAddition, func(ctx context.Context, payload json.RawMessage) error {
		var job services.VerifyNodeAdditionJob
		if err := json.Unmarshal(payload, &job); err != nil {
			return err
		}
		return tracer.TraceJob(ctx, services.JobVerifyNodeAddition, job.CanvasID, func(ctx context.Context) error {
			return nodeService.VerifyNodeAddition(ctx, job)
		})
	})

	registry.Register(services.JobPostDeleteCanvas, func(ctx context.Context, payload json.RawMessage) error {
		var job services.PostDeleteCanvasJob
		if err := json.Unmarshal(payload, &job); err != nil {
			return err
		}
		return tracer.TraceJob(ctx, services.JobPostDeleteCanvas, job.CanvasID, func(ctx context.Context) error {
			return cleanupService.PostDeleteCanvas(ctx, job)
		})
	})

	registry.Register(services.JobDeleteEntity, func(ctx context.Context, payload json.RawMessage) error {
		var job services.DeleteEntityJob
		if err := json.Unmarshal(payload, &job); err != nil {
			return err
		}
		refs := []document.EntityRef{{EntityID: job.EntityID, EntityType: job.EntityType}}
		return tracer.TraceJob(ctx, services.JobDeleteEntity, "", func(ctx context.Context) error {
			return nodeService.RemoveEntityNodes(ctx, refs)
		})
	})
}
