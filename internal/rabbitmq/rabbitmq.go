package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"showservice/internal/config"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

type Client interface {
	Close() error

	DeclareQueue(name string) (amqp.Queue, error)
	InspectQueue(name string) (amqp.Queue, error)

	Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error
	Enqueue(ctx context.Context, queueName string, v interface{}) error
	Consume(queueName string, consumerTag string) (<-chan amqp.Delivery, error)
	Get(queueName string) (amqp.Delivery, bool, error)

	Health() error
}

type client struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	config       config.RabbitMQConfig
	mu           sync.Mutex
	reconnecting bool
	notifyClose  chan *amqp.Error
}

func NewClientFromConfig(cfg config.RabbitMQConfig) (Client, error) {
	c := &client{
		config:       cfg,
		reconnecting: false,
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	// Setup reconnection handling
	c.setupReconnect()

	return c, nil
}

func (c *client) connect() error {
	amqpURL := fmt.Sprintf("amqp://%s:%s@%s:%d/%s",
		c.config.Username,
		c.config.Password,
		c.config.Host,
		c.config.Port,
		c.config.VHost,
	)

	conn, err := amqp.DialConfig(amqpURL, amqp.Config{
		Heartbeat: 30 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to RabbitMQ")
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open RabbitMQ channel")
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if c.config.PrefetchCount > 0 {
		if err := ch.Qos(c.config.PrefetchCount, 0, false); err != nil {
			log.Error().Err(err).Msg("Failed to set channel QoS")
			conn.Close()
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	c.conn = conn
	c.channel = ch

	log.Info().
		Str("host", c.config.Host).
		Int("port", c.config.Port).
		Str("vhost", c.config.VHost).
		Msg("RabbitMQ connection established")

	return nil
}

func (c *client) setupReconnect() {
	c.notifyClose = c.conn.NotifyClose(make(chan *amqp.Error, 1))

	go func(notify chan *amqp.Error) {
		for err := range notify {
			log.Warn().
				Str("reason", err.Reason).
				Int("code", err.Code).
				Bool("recover", err.Recover).
				Msg("RabbitMQ connection closed, attempting to reconnect...")

			c.doReconnect()
		}
	}(c.notifyClose)
}

func (c *client) doReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reconnecting {
		return
	}

	c.reconnecting = true
	defer func() { c.reconnecting = false }()

	if c.channel != nil {
		c.channel.Close()
	}

	if c.conn != nil && !c.conn.IsClosed() {
		c.conn.Close()
	}

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		log.Info().Dur("backoff", backoff).Msg("Attempting to reconnect to RabbitMQ")

		if err := c.connect(); err != nil {
			log.Error().Err(err).Msg("Failed to reconnect to RabbitMQ")

			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		c.setupReconnect()

		log.Info().Msg("Successfully reconnected to RabbitMQ")
		return
	}
}

// ensureConnected must be called with c.mu held
func (c *client) ensureConnected(action string) error {
	if c.conn != nil && c.channel != nil && !c.conn.IsClosed() && !c.channel.IsClosed() {
		return nil
	}

	if err := c.connect(); err != nil {
		return fmt.Errorf("failed to reconnect before %s: %w", action, err)
	}
	c.setupReconnect()

	return nil
}

func (c *client) Health() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.channel == nil {
		log.Error().Msg("RabbitMQ health check failed: nil connection or channel")
		return fmt.Errorf("nil connection or channel")
	}

	if c.conn.IsClosed() {
		log.Error().Msg("RabbitMQ connection is closed")
		return fmt.Errorf("connection is closed")
	}

	// amq.direct always exists; a passive declare validates the channel
	err := c.channel.ExchangeDeclarePassive("amq.direct", "direct", true, false, false, false, nil)
	if err != nil {
		log.Error().Err(err).Msg("RabbitMQ health check failed on passive exchange declare")
		return err
	}

	return nil
}

func (c *client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil && !c.channel.IsClosed() {
		if err := c.channel.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close RabbitMQ channel")
			return fmt.Errorf("channel close error: %w", err)
		}
	}

	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close RabbitMQ connection")
			return fmt.Errorf("connection close error: %w", err)
		}
	}

	log.Info().Msg("RabbitMQ connection and channel closed")
	return nil
}

func (c *client) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnected("publishing"); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.channel.PublishWithContext(ctx, exchange, routingKey, false, false, msg); err != nil {
		log.Error().
			Err(err).
			Str("exchange", exchange).
			Str("routingKey", routingKey).
			Str("messageID", msg.MessageId).
			Msg("Failed to publish message")
		return err
	}

	log.Debug().
		Str("exchange", exchange).
		Str("routingKey", routingKey).
		Str("messageID", msg.MessageId).
		Int("size", len(msg.Body)).
		Msg("Published message")

	return nil
}

// Enqueue publishes v as JSON to the named queue through the default exchange
func (c *client) Enqueue(ctx context.Context, queueName string, v interface{}) error {
	msg, err := NewPublishing(v)
	if err != nil {
		return err
	}

	return c.Publish(ctx, "", queueName, msg)
}

func (c *client) Consume(queueName string, consumerTag string) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnected("consuming"); err != nil {
		return nil, err
	}

	deliveries, err := c.channel.Consume(
		queueName,   // queue
		consumerTag, // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		log.Error().
			Err(err).
			Str("queue", queueName).
			Str("consumerTag", consumerTag).
			Msg("Failed to start consuming")
		return nil, fmt.Errorf("consume error: %w", err)
	}

	log.Info().
		Str("queue", queueName).
		Str("consumerTag", consumerTag).
		Msg("Started consuming messages")

	return deliveries, nil
}

// Get pulls a single message without a consumer; the caller acks it
func (c *client) Get(queueName string) (amqp.Delivery, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnected("getting"); err != nil {
		return amqp.Delivery{}, false, err
	}

	delivery, ok, err := c.channel.Get(queueName, false)
	if err != nil {
		log.Error().Err(err).Str("queue", queueName).Msg("Failed to get message")
		return amqp.Delivery{}, false, err
	}

	return delivery, ok, nil
}

func (c *client) DeclareQueue(name string) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnected("declaring queue"); err != nil {
		return amqp.Queue{}, err
	}

	queue, err := c.channel.QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		log.Error().Err(err).Str("queue", name).Msg("Failed to declare queue")
		return queue, err
	}

	log.Info().Str("queue", name).Msg("Declared queue")
	return queue, nil
}

// InspectQueue reads queue counters with a passive declare on a throwaway
// channel, since the broker closes the channel when the queue is missing.
func (c *client) InspectQueue(name string) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureConnected("inspecting queue"); err != nil {
		return amqp.Queue{}, err
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to open channel: %w", err)
	}
	defer func() {
		if !ch.IsClosed() {
			ch.Close()
		}
	}()

	return ch.QueueDeclarePassive(name, true, false, false, false, nil)
}

// NewPublishing builds a persistent JSON message with a fresh id
func NewPublishing(v interface{}) (amqp.Publishing, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal message: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}
