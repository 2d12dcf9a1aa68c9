package controller

import (
	"context"
	"fmt"
	"showservice/internal/model"
	"showservice/internal/orchestrator"
	"showservice/internal/rabbitmq"
	"showservice/internal/retry"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// QueueController consumes every registered work queue
type QueueController interface {
	// ProcessQueues declares the work and dead-letter queues and starts one consumer per work queue
	ProcessQueues(ctx context.Context) error

	// StopProcessing stops the consumers and waits for in-flight messages
	StopProcessing()
}

// Broker is the subset of the RabbitMQ client the consumers need
type Broker interface {
	DeclareQueue(name string) (amqp.Queue, error)
	Consume(queueName string, consumerTag string) (<-chan amqp.Delivery, error)
	Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error
}

// MessageRunner applies the retry policy around a queue handler
type MessageRunner interface {
	HandleQueueMessageWithRetry(ctx context.Context, msg model.QueueMessage, handler retry.Handler, op model.OperationType) (bool, error)
	DeadLetterQueueNames() []string
}

type queueController struct {
	broker         Broker
	runner         MessageRunner
	registry       *orchestrator.Registry
	reconnectDelay time.Duration
	shutdown       chan struct{}
	stopOnce       sync.Once
	wg             sync.WaitGroup
}

func NewQueueController(broker Broker, runner MessageRunner, registry *orchestrator.Registry) QueueController {
	return &queueController{
		broker:         broker,
		runner:         runner,
		registry:       registry,
		reconnectDelay: 5 * time.Second,
		shutdown:       make(chan struct{}),
	}
}

func (c *queueController) ProcessQueues(ctx context.Context) error {
	queues := c.registry.Queues()
	if len(queues) == 0 {
		return fmt.Errorf("no queue handlers registered")
	}

	for _, name := range c.runner.DeadLetterQueueNames() {
		if _, err := c.broker.DeclareQueue(name); err != nil {
			return fmt.Errorf("failed to declare dead-letter queue %s: %w", name, err)
		}
	}

	for _, name := range queues {
		queue, err := c.broker.DeclareQueue(name)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", name, err)
		}

		consumerTag := fmt.Sprintf("%s-consumer-%s", queue.Name, uuid.NewString()[:8])
		c.startConsumer(ctx, queue.Name, consumerTag)
	}

	log.Info().Strs("queues", queues).Msg("Queue processing started")
	return nil
}

func (c *queueController) StopProcessing() {
	c.stopOnce.Do(func() { close(c.shutdown) })
	c.wg.Wait()
	log.Info().Msg("Queue processing stopped")
}

func (c *queueController) startConsumer(ctx context.Context, queueName, consumerTag string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		log.Info().
			Str("queue", queueName).
			Str("consumerTag", consumerTag).
			Msg("Starting queue consumer")

		for {
			if c.stopped(ctx) {
				log.Info().Str("consumerTag", consumerTag).Msg("Stopping consumer")
				return
			}

			deliveries, err := c.broker.Consume(queueName, consumerTag)
			if err != nil {
				log.Error().
					Err(err).
					Str("queue", queueName).
					Str("consumerTag", consumerTag).
					Msg("Failed to consume from queue")

				c.wait(ctx)
				continue
			}

			if !c.drain(ctx, queueName, deliveries) {
				return
			}

			log.Warn().
				Str("queue", queueName).
				Str("consumerTag", consumerTag).
				Msg("Consumer channel closed, reconnecting...")

			c.wait(ctx)
		}
	}()
}

// drain returns false when the consumer should stop, true when the channel closed
func (c *queueController) drain(ctx context.Context, queueName string, deliveries <-chan amqp.Delivery) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-c.shutdown:
			return false
		case delivery, ok := <-deliveries:
			if !ok {
				return true
			}
			c.processDelivery(ctx, queueName, delivery)
		}
	}
}

func (c *queueController) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-c.shutdown:
		return true
	default:
		return false
	}
}

func (c *queueController) wait(ctx context.Context) {
	timer := time.NewTimer(c.reconnectDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-c.shutdown:
	case <-timer.C:
	}
}

// processDelivery settles one delivery. A message whose handler failed
// is published again with a bumped dequeue count and the original is acked.
func (c *queueController) processDelivery(ctx context.Context, queueName string, delivery amqp.Delivery) {
	route, ok := c.registry.Get(queueName)
	if !ok {
		log.Error().Str("queue", queueName).Msg("No handler registered for queue, rejecting")
		delivery.Nack(false, false)
		return
	}

	msg := rabbitmq.ToQueueMessage(delivery)
	logger := log.With().
		Str("queue", queueName).
		Str("messageID", msg.ID).
		Int("dequeueCount", msg.DequeueCount).
		Str("operationType", string(route.Operation)).
		Logger()

	_, err := c.runner.HandleQueueMessageWithRetry(ctx, msg, route.Handler, route.Operation)
	if err == nil {
		delivery.Ack(false)
		return
	}

	if ctx.Err() != nil {
		logger.Warn().Err(err).Msg("Shutting down, returning message to queue")
		delivery.Nack(false, true)
		return
	}

	if pubErr := c.broker.Publish(ctx, "", queueName, rabbitmq.Redelivery(delivery)); pubErr != nil {
		logger.Error().Err(pubErr).Msg("Failed to republish message, requeueing")
		delivery.Nack(false, true)
		return
	}

	logger.Warn().Err(err).Msg("Message failed, republished for another attempt")
	delivery.Ack(false)
}
