package sqs

import (
	"context"
	"encoding/json"
	"time"

	"canvas-backend/infrastructure/messaging"
	pkgerrors "canvas-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
)

// Consumer polls the queue and dispatches envelopes to registered
// handlers. A handler error triggers a requeue with backoff until the
// envelope's attempts run out; the message itself is always deleted, so
// retry bookkeeping lives in the envelope rather than SQS visibility.
type Consumer struct {
	client   *sqs.Client
	queueURL string
	queue    *TaskQueue
	registry *messaging.Registry
	logger   *zap.Logger
}

// NewConsumer creates a queue consumer
func NewConsumer(client *sqs.Client, queueURL string, queue *TaskQueue, registry *messaging.Registry, logger *zap.Logger) *Consumer {
	return &Consumer{
		client:   client,
		queueURL: queueURL,
		queue:    queue,
		registry: registry,
		logger:   logger,
	}
}

// Run polls until the context is cancelled
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("Queue consumer started", zap.String("queueUrl", c.queueURL))
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Queue consumer stopping")
			return ctx.Err()
		default:
		}

		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("Failed to receive messages", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range out.Messages {
			c.handleMessage(ctx, msg)
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, msg sqstypes.Message) {
	defer c.delete(ctx, msg)

	var env messaging.Envelope
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &env); err != nil {
		c.logger.Error("Dropping undecodable message", zap.Error(err))
		return
	}

	err := c.registry.Dispatch(ctx, env)
	if err == nil {
		return
	}

	c.logger.Warn("Job handler failed",
		zap.String("jobName", env.JobName),
		zap.String("jobId", env.JobID),
		zap.Int("attempt", env.Attempt),
		zap.Error(err),
	)

	// Fatal errors and exhausted envelopes are not redelivered.
	if env.MaxAttempts > 0 && env.Attempt < env.MaxAttempts && retryWorthy(err) {
		next := env
		next.Attempt = env.Attempt + 1
		if requeueErr := c.queue.Requeue(ctx, next, env.RetryDelay()); requeueErr != nil {
			c.logger.Error("Failed to requeue job",
				zap.String("jobName", env.JobName),
				zap.Error(requeueErr),
			)
		}
		return
	}

	c.logger.Error("Job abandoned",
		zap.String("jobName", env.JobName),
		zap.String("jobId", env.JobID),
		zap.Int("attempt", env.Attempt),
		zap.Error(err),
	)
}

func (c *Consumer) delete(ctx context.Context, msg sqstypes.Message) {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		c.logger.Warn("Failed to delete message", zap.Error(err))
	}
}

// retryWorthy keeps validation and not-found failures from burning retry
// attempts; untyped errors are assumed transient.
func retryWorthy(err error) bool {
	appErr := pkgerrors.GetAppError(err)
	if appErr == nil {
		return true
	}
	switch appErr.Type {
	case pkgerrors.ErrorTypeValidation, pkgerrors.ErrorTypeNotFound, pkgerrors.ErrorTypeForbidden, pkgerrors.ErrorTypeQuota:
		return false
	}
	return true
}
