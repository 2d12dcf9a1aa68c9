package retry

import (
	"context"
	"encoding/json"
	"fmt"
	"showservice/internal/model"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// DeadLetterStatistics reports the depth of every dead-letter queue
func (c *Coordinator) DeadLetterStatistics(ctx context.Context) model.DeadLetterStatistics {
	stats := model.DeadLetterStatistics{
		LastCheck: c.now(),
		Queues:    map[string]model.DeadLetterQueueStats{},
	}

	for _, name := range c.DeadLetterQueueNames() {
		q, err := c.queue.InspectQueue(name)
		if err != nil {
			log.Warn().Err(err).Str("queue", name).Msg("Failed to inspect dead-letter queue")
			stats.Queues[name] = model.DeadLetterQueueStats{Error: err.Error()}
			continue
		}
		stats.Queues[name] = model.DeadLetterQueueStats{
			MessageCount: q.Messages,
			Consumers:    q.Consumers,
		}
	}

	return stats
}

// ProcessDeadLetterQueue moves up to max envelopes from a dead-letter queue
// back onto the primary queue of their operation type, with a fresh
// delivery count. Envelopes that cannot be routed are returned to the
// dead-letter queue untouched.
func (c *Coordinator) ProcessDeadLetterQueue(ctx context.Context, queueName string, max int) (int, error) {
	if !c.isDeadLetterQueue(queueName) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownQueue, queueName)
	}

	var held []amqp.Delivery
	defer func() {
		for _, d := range held {
			if err := d.Nack(false, true); err != nil {
				log.Error().Err(err).Str("queue", queueName).Msg("Failed to return dead letter")
			}
		}
	}()

	replayed := 0
	for i := 0; i < max; i++ {
		if err := ctx.Err(); err != nil {
			return replayed, err
		}

		d, ok, err := c.queue.Get(queueName)
		if err != nil {
			return replayed, err
		}
		if !ok {
			break
		}

		var envelope model.DeadLetterEnvelope
		if err := json.Unmarshal(d.Body, &envelope); err != nil {
			log.Error().Err(err).Str("queue", queueName).Str("messageID", d.MessageId).Msg("Unreadable dead letter")
			held = append(held, d)
			continue
		}

		target, ok := c.primaryQueues[envelope.OperationType]
		if !ok {
			log.Warn().
				Str("queue", queueName).
				Str("operationType", string(envelope.OperationType)).
				Msg("Dead letter has no primary queue")
			held = append(held, d)
			continue
		}

		if err := c.queue.Enqueue(ctx, target, envelope.OriginalMessage); err != nil {
			held = append(held, d)
			return replayed, err
		}

		if err := d.Ack(false); err != nil {
			log.Error().Err(err).Str("queue", queueName).Msg("Failed to ack replayed dead letter")
		}
		replayed++

		log.Info().
			Str("queue", queueName).
			Str("target", target).
			Str("originalMessageID", envelope.OriginalMessageID).
			Msg("Replayed dead letter")
	}

	return replayed, nil
}

func (c *Coordinator) isDeadLetterQueue(name string) bool {
	for _, q := range c.deadLetterQueues {
		if q == name {
			return true
		}
	}
	return false
}
