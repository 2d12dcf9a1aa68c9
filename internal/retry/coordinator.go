package retry

import (
	"context"
	"fmt"
	"showservice/internal/config"
	"showservice/internal/model"
	"sort"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// maxBackoffExponent keeps the shifted delay from overflowing
const maxBackoffExponent = 20

// Tracker is the audit trail the coordinator writes to
type Tracker interface {
	TrackRetryAttempt(ctx context.Context, attempt model.RetryAttempt)
	ResolveOperation(ctx context.Context, op model.OperationType, identifier string)
	GetFailedOperations(ctx context.Context, op model.OperationType, maxAgeHours int) []model.FailedOperation
}

// Queue is the broker surface used for dead-lettering and re-injection
type Queue interface {
	Enqueue(ctx context.Context, queueName string, v interface{}) error
	InspectQueue(name string) (amqp.Queue, error)
	Get(queueName string) (amqp.Delivery, bool, error)
}

// Coordinator applies one retry and dead-letter policy to every operation
type Coordinator struct {
	tracker     Tracker
	queue       Queue
	maxAttempts int
	baseDelay   time.Duration

	primaryQueues    map[model.OperationType]string
	deadLetterQueues map[model.OperationType]string

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func NewCoordinator(cfg *config.Config, tracker Tracker, queue Queue) *Coordinator {
	rmq := cfg.RabbitMQ
	general := rmq.DeadLetterQueue(rmq.GeneralQueue)

	return &Coordinator{
		tracker:     tracker,
		queue:       queue,
		maxAttempts: cfg.Import.MaxRetryAttempts,
		baseDelay:   cfg.Import.BaseDelay(),
		primaryQueues: map[model.OperationType]string{
			model.OperationIndexPage:   rmq.IndexQueue,
			model.OperationShowDetails: rmq.DetailsQueue,
		},
		deadLetterQueues: map[model.OperationType]string{
			model.OperationIndexPage:      rmq.DeadLetterQueue(rmq.IndexQueue),
			model.OperationShowDetails:    rmq.DeadLetterQueue(rmq.DetailsQueue),
			model.OperationShowUpsert:     general,
			model.OperationShowIDUpdate:   general,
			model.OperationCatalogUpdates: general,
		},
		sleep: sleepContext,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// MaxAttempts is the per-message delivery budget
func (c *Coordinator) MaxAttempts() int {
	return c.maxAttempts
}

// CalculateBackoffDelay returns base * 2^(attempt-1), without jitter
func (c *Coordinator) CalculateBackoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	exp := attempt - 1
	if exp > maxBackoffExponent {
		exp = maxBackoffExponent
	}
	return c.baseDelay * time.Duration(1<<uint(exp))
}

// DeadLetterQueueName maps an operation type to its dead-letter queue
func (c *Coordinator) DeadLetterQueueName(op model.OperationType) (string, error) {
	name, ok := c.deadLetterQueues[op]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
	return name, nil
}

// PrimaryQueueName maps an operation type to the queue its messages are consumed from
func (c *Coordinator) PrimaryQueueName(op model.OperationType) (string, bool) {
	name, ok := c.primaryQueues[op]
	return name, ok
}

// DeadLetterQueueNames lists every distinct dead-letter queue
func (c *Coordinator) DeadLetterQueueNames() []string {
	seen := map[string]bool{}
	names := []string{}
	for _, name := range c.deadLetterQueues {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (c *Coordinator) trackFailure(ctx context.Context, op model.OperationType, identifier string, attempt, maxAttempts int, err error, payload []byte) {
	now := c.now()
	c.tracker.TrackRetryAttempt(ctx, model.RetryAttempt{
		OperationType: op,
		Identifier:    identifier,
		AttemptNumber: attempt,
		MaxAttempts:   maxAttempts,
		ErrorMessage:  err.Error(),
		AttemptTime:   now,
		NextRetryTime: now.Add(c.CalculateBackoffDelay(attempt)),
		Payload:       payload,
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
