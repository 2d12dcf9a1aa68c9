package retry

import (
	"errors"
	"fmt"
	"showservice/internal/model"
)

// ErrUnknownOperation is returned for an operation type outside the known set
var ErrUnknownOperation = errors.New("unknown operation type")

// ErrUnknownQueue is returned when a dead-letter action names a queue the coordinator does not own
var ErrUnknownQueue = errors.New("unknown dead-letter queue")

// RetryExhaustedError is returned by WithRetry once every attempt has failed
type RetryExhaustedError struct {
	OperationType model.OperationType
	Identifier    string
	Attempts      int
	Err           error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s %s failed after %d attempts: %v", e.OperationType, e.Identifier, e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}
