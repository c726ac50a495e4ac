package observability

import (
	"context"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
)

// Tracer wraps X-Ray segments around background job handlers so slow
// verification or reconciliation runs show up with their canvas annotation.
type Tracer struct {
	serviceName string
	enabled     bool
}

// NewTracer creates a tracer. Disabled tracers run the wrapped function
// without opening segments, which is the test and desktop configuration.
func NewTracer(serviceName string, enabled bool) *Tracer {
	return &Tracer{serviceName: serviceName, enabled: enabled}
}

// TraceJob wraps a job handler invocation in a trace segment annotated with
// the canvas id.
func (t *Tracer) TraceJob(ctx context.Context, jobName, canvasID string, fn func(context.Context) error) error {
	if !t.enabled {
		return fn(ctx)
	}

	ctx, seg := xray.BeginSegment(ctx, fmt.Sprintf("%s.%s", t.serviceName, jobName))
	defer seg.Close(nil)

	if canvasID != "" {
		_ = seg.AddAnnotation("canvasId", canvasID)
	}

	err := fn(ctx)
	if err != nil {
		_ = seg.AddError(err)
	}
	return err
}
