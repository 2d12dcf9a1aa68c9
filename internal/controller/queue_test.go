package controller

import (
	"context"
	"errors"
	"showservice/internal/model"
	"showservice/internal/orchestrator"
	"showservice/internal/rabbitmq"
	"showservice/internal/retry"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settlement struct {
	tag     uint64
	ack     bool
	requeue bool
}

type fakeAcknowledger struct {
	mu      sync.Mutex
	settled []settlement
}

func (a *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settled = append(a.settled, settlement{tag: tag, ack: true})
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settled = append(a.settled, settlement{tag: tag, requeue: requeue})
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcknowledger) all() []settlement {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]settlement(nil), a.settled...)
}

type publishedMessage struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeBroker struct {
	mu         sync.Mutex
	declared   []string
	published  []publishedMessage
	publishErr error
	declareErr error
	channels   map[string]chan amqp.Delivery
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{channels: map[string]chan amqp.Delivery{}}
}

func (b *fakeBroker) DeclareQueue(name string) (amqp.Queue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.declareErr != nil {
		return amqp.Queue{}, b.declareErr
	}
	b.declared = append(b.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (b *fakeBroker) Consume(queueName string, _ string) (<-chan amqp.Delivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.channels[queueName]
	if !ok {
		ch = make(chan amqp.Delivery, 8)
		b.channels[queueName] = ch
	}
	return ch, nil
}

func (b *fakeBroker) Publish(_ context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, publishedMessage{exchange: exchange, key: routingKey, msg: msg})
	return nil
}

func (b *fakeBroker) channel(queueName string) chan amqp.Delivery {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.channels[queueName]
	if !ok {
		ch = make(chan amqp.Delivery, 8)
		b.channels[queueName] = ch
	}
	return ch
}

type fakeRunner struct {
	mu       sync.Mutex
	err      error
	seen     []model.QueueMessage
	ops      []model.OperationType
	deadLtrs []string
}

func (r *fakeRunner) HandleQueueMessageWithRetry(ctx context.Context, msg model.QueueMessage, handler retry.Handler, op model.OperationType) (bool, error) {
	r.mu.Lock()
	r.seen = append(r.seen, msg)
	r.ops = append(r.ops, op)
	err := r.err
	r.mu.Unlock()

	if err != nil {
		return false, err
	}
	return true, handler(ctx, msg)
}

func (r *fakeRunner) DeadLetterQueueNames() []string {
	return r.deadLtrs
}

func (r *fakeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func noopHandler(context.Context, model.QueueMessage) error { return nil }

func newQueueHarness() (*queueController, *fakeBroker, *fakeRunner) {
	broker := newFakeBroker()
	runner := &fakeRunner{deadLtrs: []string{"general-deadletter", "index-queue-deadletter"}}
	registry := orchestrator.NewRegistry(
		orchestrator.Route{Queue: "index-queue", Operation: model.OperationIndexPage, Handler: noopHandler},
		orchestrator.Route{Queue: "shows-details-queue", Operation: model.OperationShowDetails, Handler: noopHandler},
	)

	c := NewQueueController(broker, runner, registry).(*queueController)
	c.reconnectDelay = time.Millisecond
	return c, broker, runner
}

func TestProcessDeliveryAcksOnSuccess(t *testing.T) {
	c, broker, runner := newQueueHarness()
	ack := &fakeAcknowledger{}

	c.processDelivery(context.Background(), "index-queue", amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  1,
		MessageId:    "m-1",
		Body:         []byte(`{"page":0}`),
	})

	assert.Equal(t, []settlement{{tag: 1, ack: true}}, ack.all())
	assert.Empty(t, broker.published)
	require.Len(t, runner.seen, 1)
	assert.Equal(t, 1, runner.seen[0].DequeueCount)
	assert.Equal(t, model.OperationIndexPage, runner.ops[0])
}

func TestProcessDeliveryRepublishesWithBumpedCount(t *testing.T) {
	c, broker, runner := newQueueHarness()
	runner.err = errors.New("catalog down")
	ack := &fakeAcknowledger{}

	c.processDelivery(context.Background(), "index-queue", amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  2,
		MessageId:    "m-2",
		Headers:      amqp.Table{rabbitmq.DequeueCountHeader: int32(2)},
		Body:         []byte(`{"page":4}`),
	})

	require.Len(t, broker.published, 1)
	republished := broker.published[0]
	assert.Equal(t, "", republished.exchange)
	assert.Equal(t, "index-queue", republished.key)
	assert.Equal(t, int32(3), republished.msg.Headers[rabbitmq.DequeueCountHeader])
	assert.Equal(t, []byte(`{"page":4}`), republished.msg.Body)
	assert.Equal(t, []settlement{{tag: 2, ack: true}}, ack.all())
}

func TestProcessDeliveryRequeuesWhenRepublishFails(t *testing.T) {
	c, broker, runner := newQueueHarness()
	runner.err = errors.New("catalog down")
	broker.publishErr = errors.New("channel closed")
	ack := &fakeAcknowledger{}

	c.processDelivery(context.Background(), "index-queue", amqp.Delivery{Acknowledger: ack, DeliveryTag: 3})

	assert.Equal(t, []settlement{{tag: 3, requeue: true}}, ack.all())
}

func TestProcessDeliveryRequeuesOnShutdown(t *testing.T) {
	c, broker, runner := newQueueHarness()
	runner.err = context.Canceled
	ack := &fakeAcknowledger{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c.processDelivery(ctx, "index-queue", amqp.Delivery{Acknowledger: ack, DeliveryTag: 4})

	assert.Empty(t, broker.published)
	assert.Equal(t, []settlement{{tag: 4, requeue: true}}, ack.all())
}

func TestProcessDeliveryRejectsUnroutedQueue(t *testing.T) {
	c, _, runner := newQueueHarness()
	ack := &fakeAcknowledger{}

	c.processDelivery(context.Background(), "unknown", amqp.Delivery{Acknowledger: ack, DeliveryTag: 5})

	assert.Equal(t, []settlement{{tag: 5, requeue: false}}, ack.all())
	assert.Zero(t, runner.count())
}

func TestProcessQueuesDeclaresAndConsumes(t *testing.T) {
	c, broker, runner := newQueueHarness()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, c.ProcessQueues(ctx))

	assert.ElementsMatch(t, []string{
		"general-deadletter",
		"index-queue-deadletter",
		"index-queue",
		"shows-details-queue",
	}, broker.declared)

	ack := &fakeAcknowledger{}
	broker.channel("shows-details-queue") <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 9, Body: []byte(`{"show_id":1}`)}

	assert.Eventually(t, func() bool { return len(ack.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, runner.count())

	c.StopProcessing()
	c.StopProcessing()
}

func TestProcessQueuesReportsDeclareFailure(t *testing.T) {
	c, broker, _ := newQueueHarness()
	broker.declareErr = errors.New("access refused")

	err := c.ProcessQueues(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access refused")
}

func TestProcessQueuesWithoutRoutes(t *testing.T) {
	c := NewQueueController(newFakeBroker(), &fakeRunner{}, orchestrator.NewRegistry())
	assert.Error(t, c.ProcessQueues(context.Background()))
}
