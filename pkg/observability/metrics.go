package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// cloudWatchAPI is the slice of the CloudWatch client the metrics use
type cloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Metrics publishes engine counters to CloudWatch. Publishing is
// best-effort: failures are logged and never propagated, since losing a
// metric must not fail the operation being measured. The verification
// counters are the engine's only signal for silent data loss, so abandoned
// verifications always emit both a metric and a log line.
type Metrics struct {
	namespace string
	client    cloudWatchAPI
	logger    *zap.Logger
}

// NewMetrics creates a Metrics publisher. A nil client disables publishing
// (counters become log-only), which is the desktop-mode configuration.
func NewMetrics(namespace string, client *cloudwatch.Client, logger *zap.Logger) *Metrics {
	m := &Metrics{namespace: namespace, logger: logger}
	if client != nil {
		m.client = client
	}
	return m
}

// RecordVerificationOutcome counts one terminal or intermediate verification
// state: confirmed, retried or abandoned.
func (m *Metrics) RecordVerificationOutcome(ctx context.Context, outcome string) {
	m.putCount(ctx, "NodeVerification", map[string]string{"Outcome": outcome})
}

// RecordReconciliation counts one reconciliation run and its created and
// soft-deleted relation counts.
func (m *Metrics) RecordReconciliation(ctx context.Context, created, softDeleted int) {
	m.putCount(ctx, "RelationReconciliation", nil)
	m.put(ctx, "RelationsCreated", float64(created), nil)
	m.put(ctx, "RelationsSoftDeleted", float64(softDeleted), nil)
}

// RecordDuplication counts one duplication attempt by result
func (m *Metrics) RecordDuplication(ctx context.Context, result string) {
	m.putCount(ctx, "CanvasDuplication", map[string]string{"Result": result})
}

func (m *Metrics) putCount(ctx context.Context, name string, dims map[string]string) {
	m.put(ctx, name, 1, dims)
}

func (m *Metrics) put(ctx context.Context, name string, value float64, dims map[string]string) {
	if m.client == nil {
		return
	}

	datum := types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       types.StandardUnitCount,
		Timestamp:  aws.Time(time.Now()),
	}
	for k, v := range dims {
		datum.Dimensions = append(datum.Dimensions, types.Dimension{
			Name:  aws.String(k),
			Value: aws.String(v),
		})
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: []types.MetricDatum{datum},
	})
	if err != nil && m.logger != nil {
		m.logger.Warn("Failed to publish metric",
			zap.String("metric", name),
			zap.Error(err),
		)
	}
}
