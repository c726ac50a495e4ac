package sqs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"canvas-backend/application/ports"
	"canvas-backend/infrastructure/messaging"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
)

// maxSQSDelay is the SQS DelaySeconds ceiling
const maxSQSDelay = 15 * time.Minute

// TaskQueue implements ports.TaskQueue on an SQS queue. With a FIFO queue
// the job id becomes the MessageDeduplicationId, giving queue-level
// collapse of duplicate enqueues; on a standard queue handlers carry the
// idempotence instead.
type TaskQueue struct {
	client   *sqs.Client
	queueURL string
	fifo     bool
	logger   *zap.Logger
}

// NewTaskQueue creates an SQS task queue adapter
func NewTaskQueue(client *sqs.Client, queueURL string, logger *zap.Logger) *TaskQueue {
	return &TaskQueue{
		client:   client,
		queueURL: queueURL,
		fifo:     strings.HasSuffix(queueURL, ".fifo"),
		logger:   logger,
	}
}

// Enqueue sends one job envelope
func (q *TaskQueue) Enqueue(ctx context.Context, jobName string, payload any, opts ports.EnqueueOptions) error {
	env, err := messaging.NewEnvelope(jobName, payload, opts)
	if err != nil {
		return err
	}
	return q.send(ctx, env, opts.Delay)
}

// Requeue re-sends a failed envelope for its next attempt
func (q *TaskQueue) Requeue(ctx context.Context, env messaging.Envelope, delay time.Duration) error {
	return q.send(ctx, env, delay)
}

func (q *TaskQueue) send(ctx context.Context, env messaging.Envelope, delay time.Duration) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	input := q.buildSendInput(env, string(body), delay)

	if _, err := q.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	q.logger.Debug("Enqueued job",
		zap.String("jobName", env.JobName),
		zap.String("jobId", env.JobID),
		zap.Int("attempt", env.Attempt),
		zap.Duration("delay", delay),
	)
	return nil
}

// buildSendInput assembles the SendMessage request. FIFO queues reject
// per-message DelaySeconds, so the delay is only set on standard queues;
// on FIFO the queue-level delivery delay applies instead.
func (q *TaskQueue) buildSendInput(env messaging.Envelope, body string, delay time.Duration) *sqs.SendMessageInput {
	if delay > maxSQSDelay {
		delay = maxSQSDelay
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(body),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"jobName": {
				DataType:    aws.String("String"),
				StringValue: aws.String(env.JobName),
			},
		},
	}
	if q.fifo {
		input.MessageGroupId = aws.String(env.JobName)
		if env.JobID != "" {
			// Attempt is folded in so retries are not swallowed by the
			// five minute dedupe window.
			input.MessageDeduplicationId = aws.String(dedupeID(env.JobID, env.Attempt))
		}
	} else {
		input.DelaySeconds = int32(delay / time.Second)
	}
	return input
}

func dedupeID(jobID string, attempt int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", jobID, attempt)))
	return hex.EncodeToString(sum[:])
}
