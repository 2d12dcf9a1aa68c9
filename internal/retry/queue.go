package retry

import (
	"context"
	"encoding/json"
	"fmt"
	"showservice/internal/model"

	"github.com/rs/zerolog/log"
)

// Handler processes one delivered queue message
type Handler func(ctx context.Context, msg model.QueueMessage) error

// HandleQueueMessageWithRetry applies the delivery-count policy around handler.
// It returns true when the handler succeeded, false with a nil error when the
// message was dead-lettered, and the handler's error when the transport
// should deliver the message again.
func (c *Coordinator) HandleQueueMessageWithRetry(ctx context.Context, msg model.QueueMessage, handler Handler, op model.OperationType) (bool, error) {
	identifier := messageIdentifier(msg)
	logger := log.With().
		Str("operationType", string(op)).
		Str("messageID", msg.ID).
		Int("dequeueCount", msg.DequeueCount).
		Logger()

	if msg.DequeueCount > c.maxAttempts {
		logger.Error().Int("maxAttempts", c.maxAttempts).Msg("Message exceeded max retry attempts")
		c.SendToDeadLetterQueue(ctx, msg, op, fmt.Sprintf("exceeded max retry attempts (%d)", c.maxAttempts))
		return false, nil
	}

	if msg.DequeueCount > 1 {
		delay := c.CalculateBackoffDelay(msg.DequeueCount - 1)
		logger.Info().Dur("delay", delay).Msg("Redelivered message, backing off")

		if err := c.sleep(ctx, delay); err != nil {
			return false, err
		}

		now := c.now()
		c.tracker.TrackRetryAttempt(ctx, model.RetryAttempt{
			OperationType: op,
			Identifier:    identifier,
			AttemptNumber: msg.DequeueCount,
			MaxAttempts:   c.maxAttempts,
			ErrorMessage:  "redelivered",
			AttemptTime:   now,
			NextRetryTime: now,
			Payload:       msg.JSONBody(),
		})
	}

	err := handler(ctx, msg)
	if err == nil {
		if msg.DequeueCount > 1 {
			c.tracker.ResolveOperation(ctx, op, identifier)
		}
		return true, nil
	}

	c.trackFailure(ctx, op, identifier, msg.DequeueCount, c.maxAttempts, err, msg.JSONBody())

	if msg.DequeueCount >= c.maxAttempts {
		logger.Error().Err(err).Msg("Final attempt failed, dead-lettering message")
		c.SendToDeadLetterQueue(ctx, msg, op, err.Error())
		return false, nil
	}

	logger.Warn().Err(err).Msg("Message handling failed, leaving for redelivery")
	return false, err
}

// SendToDeadLetterQueue is best effort: failures are logged, never returned
func (c *Coordinator) SendToDeadLetterQueue(ctx context.Context, msg model.QueueMessage, op model.OperationType, reason string) {
	queueName, err := c.DeadLetterQueueName(op)
	if err != nil {
		log.Error().Err(err).Str("messageID", msg.ID).Msg("Cannot dead-letter message")
		return
	}

	envelope := model.DeadLetterEnvelope{
		OriginalMessage:   msg.JSONBody(),
		OperationType:     op,
		FailureReason:     reason,
		OriginalMessageID: msg.ID,
		DequeueCount:      msg.DequeueCount,
		FailedAt:          c.now(),
		InsertionTime:     msg.InsertionTime,
	}

	if err := c.queue.Enqueue(ctx, queueName, envelope); err != nil {
		log.Error().
			Err(err).
			Str("queue", queueName).
			Str("messageID", msg.ID).
			Msg("Failed to send message to dead-letter queue")
		return
	}

	log.Warn().
		Str("queue", queueName).
		Str("operationType", string(op)).
		Str("messageID", msg.ID).
		Str("reason", reason).
		Msg("Sent message to dead-letter queue")
}

// RetryFailedOperation puts previously failed data back on its primary queue
func (c *Coordinator) RetryFailedOperation(ctx context.Context, op model.OperationType, data json.RawMessage) bool {
	queueName, ok := c.primaryQueues[op]
	if !ok {
		log.Error().Str("operationType", string(op)).Msg("No queue to retry operation on")
		return false
	}

	if err := c.queue.Enqueue(ctx, queueName, data); err != nil {
		log.Error().Err(err).Str("operationType", string(op)).Str("queue", queueName).Msg("Failed to re-queue operation")
		return false
	}

	log.Info().Str("operationType", string(op)).Str("queue", queueName).Msg("Re-queued failed operation")
	return true
}

// RetryFailedOperations re-queues every due failed operation of a type
func (c *Coordinator) RetryFailedOperations(ctx context.Context, op model.OperationType, maxAgeHours int) model.RetrySummary {
	summary := model.RetrySummary{
		OperationType: op,
		MaxAgeHours:   maxAgeHours,
		CheckedAt:     c.now(),
	}

	failed := c.tracker.GetFailedOperations(ctx, op, maxAgeHours)
	summary.Found = len(failed)

	for _, f := range failed {
		if len(f.Payload) == 0 {
			summary.Skipped++
			continue
		}

		if !c.RetryFailedOperation(ctx, op, f.Payload) {
			summary.Failed++
			continue
		}

		c.tracker.ResolveOperation(ctx, op, f.Identifier)
		summary.Requeued++
	}

	log.Info().
		Str("operationType", string(op)).
		Int("found", summary.Found).
		Int("requeued", summary.Requeued).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Msg("Retried failed operations")

	return summary
}

// messageIdentifier is stable across redeliveries of the same message
func messageIdentifier(msg model.QueueMessage) string {
	if msg.ID != "" {
		return msg.ID
	}
	return string(msg.JSONBody())
}
