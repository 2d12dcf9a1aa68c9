package retry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"showservice/internal/config"
	"showservice/internal/model"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type fakeTracker struct {
	mu       sync.Mutex
	attempts []model.RetryAttempt
	resolved []string
	failed   []model.FailedOperation
}

func (t *fakeTracker) TrackRetryAttempt(_ context.Context, a model.RetryAttempt) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts = append(t.attempts, a)
}

// records collapses writes by attempt key, the way the store upserts them
func (t *fakeTracker) records() []model.RetryAttempt {
	t.mu.Lock()
	defer t.mu.Unlock()
	index := map[string]int{}
	out := []model.RetryAttempt{}
	for _, a := range t.attempts {
		key := fmt.Sprintf("%s/%s/%d", a.OperationType, a.Identifier, a.AttemptNumber)
		if i, ok := index[key]; ok {
			out[i] = a
			continue
		}
		index[key] = len(out)
		out = append(out, a)
	}
	return out
}

func (t *fakeTracker) ResolveOperation(_ context.Context, op model.OperationType, identifier string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resolved = append(t.resolved, string(op)+"/"+identifier)
}

func (t *fakeTracker) GetFailedOperations(_ context.Context, op model.OperationType, _ int) []model.FailedOperation {
	out := []model.FailedOperation{}
	for _, f := range t.failed {
		if f.OperationType == op {
			out = append(out, f)
		}
	}
	return out
}

type published struct {
	queue string
	body  []byte
}

type fakeQueue struct {
	mu         sync.Mutex
	published  []published
	enqueueErr error
	queues     map[string]amqp.Queue
	pending    map[string][]amqp.Delivery
	ack        *fakeAcknowledger
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{
		queues:  map[string]amqp.Queue{},
		pending: map[string][]amqp.Delivery{},
		ack:     &fakeAcknowledger{},
	}
}

func (q *fakeQueue) Enqueue(_ context.Context, queueName string, v interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	q.published = append(q.published, published{queue: queueName, body: body})
	return nil
}

func (q *fakeQueue) InspectQueue(name string) (amqp.Queue, error) {
	queue, ok := q.queues[name]
	if !ok {
		return amqp.Queue{}, errors.New("NOT_FOUND - no queue")
	}
	return queue, nil
}

func (q *fakeQueue) Get(queueName string) (amqp.Delivery, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	pending := q.pending[queueName]
	if len(pending) == 0 {
		return amqp.Delivery{}, false, nil
	}
	d := pending[0]
	q.pending[queueName] = pending[1:]
	d.Acknowledger = q.ack
	return d, true, nil
}

func (q *fakeQueue) deliver(queueName string, tag uint64, body []byte) {
	q.pending[queueName] = append(q.pending[queueName], amqp.Delivery{DeliveryTag: tag, Body: body})
}

func (q *fakeQueue) publishedTo(queueName string) []published {
	out := []published{}
	for _, p := range q.published {
		if p.queue == queueName {
			out = append(out, p)
		}
	}
	return out
}

type fakeAcknowledger struct {
	acked  []uint64
	nacked []uint64
}

func (a *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, _ bool, _ bool) error {
	a.nacked = append(a.nacked, tag)
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, _ bool) error {
	a.nacked = append(a.nacked, tag)
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	return cfg
}

// newTestCoordinator records sleeps instead of sleeping
func newTestCoordinator() (*Coordinator, *fakeTracker, *fakeQueue, *[]time.Duration) {
	tracker := &fakeTracker{}
	queue := newFakeQueue()
	c := NewCoordinator(testConfig(), tracker, queue)

	sleeps := &[]time.Duration{}
	c.sleep = func(ctx context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return ctx.Err()
	}
	return c, tracker, queue, sleeps
}
