package retry

import (
	"context"
	"showservice/internal/model"

	"github.com/rs/zerolog/log"
)

// WithRetry runs fn up to maxAttempts times, sleeping the backoff delay
// between attempts. Every failure is recorded. When all attempts fail the
// result is a *RetryExhaustedError wrapping the last error; a cancelled
// context during backoff returns the context error instead.
func WithRetry[T any](ctx context.Context, c *Coordinator, op model.OperationType, identifier string, maxAttempts int, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if maxAttempts < 1 {
		maxAttempts = c.maxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				c.tracker.ResolveOperation(ctx, op, identifier)
			}
			return result, nil
		}

		lastErr = err
		c.trackFailure(ctx, op, identifier, attempt, maxAttempts, err, nil)

		if attempt == maxAttempts {
			break
		}

		delay := c.CalculateBackoffDelay(attempt)
		log.Warn().
			Err(err).
			Str("operationType", string(op)).
			Str("identifier", identifier).
			Int("attempt", attempt).
			Int("maxAttempts", maxAttempts).
			Dur("delay", delay).
			Msg("Operation failed, retrying")

		if err := c.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	log.Error().
		Err(lastErr).
		Str("operationType", string(op)).
		Str("identifier", identifier).
		Int("attempts", maxAttempts).
		Msg("Operation failed after all retry attempts")

	return zero, &RetryExhaustedError{
		OperationType: op,
		Identifier:    identifier,
		Attempts:      maxAttempts,
		Err:           lastErr,
	}
}

// Do is WithRetry for operations without a result
func Do(ctx context.Context, c *Coordinator, op model.OperationType, identifier string, maxAttempts int, fn func(context.Context) error) error {
	_, err := WithRetry(ctx, c, op, identifier, maxAttempts, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
