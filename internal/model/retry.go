package model

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OperationType names a retried unit of work. The set is closed: anything
// outside the constants below is rejected by the retry layer.
type OperationType string

const (
	OperationIndexPage      OperationType = "index_page"
	OperationShowDetails    OperationType = "show_details"
	OperationShowUpsert     OperationType = "show_upsert"
	OperationShowIDUpdate   OperationType = "show_id_update"
	OperationCatalogUpdates OperationType = "catalog_updates"
)

// OperationTypes lists every known operation type
var OperationTypes = []OperationType{
	OperationIndexPage,
	OperationShowDetails,
	OperationShowUpsert,
	OperationShowIDUpdate,
	OperationCatalogUpdates,
}

// ParseOperationType validates a caller supplied operation type
func ParseOperationType(s string) (OperationType, bool) {
	for _, op := range OperationTypes {
		if string(op) == s {
			return op, true
		}
	}
	return "", false
}

// RetryAttempt is the audit entry for one attempt, keyed by
// (operation type, identifier, attempt number)
type RetryAttempt struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	OperationType OperationType      `bson:"operation_type" json:"operation_type"`
	Identifier    string             `bson:"identifier" json:"identifier"`
	AttemptNumber int                `bson:"attempt_number" json:"attempt_number"`
	MaxAttempts   int                `bson:"max_attempts" json:"max_attempts"`
	ErrorMessage  string             `bson:"error_message" json:"error_message"`
	AttemptTime   time.Time          `bson:"attempt_time" json:"attempt_time"`
	NextRetryTime time.Time          `bson:"next_retry_time" json:"next_retry_time"`
	Payload       json.RawMessage    `bson:"payload,omitempty" json:"payload,omitempty"`
}

// RetryResolution records that an operation succeeded. Attempts made at or
// before ResolvedAt no longer count as failed.
type RetryResolution struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	OperationType OperationType      `bson:"operation_type" json:"operation_type"`
	Identifier    string             `bson:"identifier" json:"identifier"`
	ResolvedAt    time.Time          `bson:"resolved_at" json:"resolved_at"`
}

// FailedOperation is the latest unresolved attempt for one identifier
type FailedOperation struct {
	OperationType OperationType   `json:"operation_type"`
	Identifier    string          `json:"identifier"`
	Attempts      int             `json:"attempts"`
	MaxAttempts   int             `json:"max_attempts"`
	LastError     string          `json:"last_error"`
	LastAttempt   time.Time       `json:"last_attempt"`
	NextRetryTime time.Time       `json:"next_retry_time"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// RetrySummary reports the outcome of a manual re-injection sweep
type RetrySummary struct {
	OperationType OperationType `json:"operation_type"`
	MaxAgeHours   int           `json:"max_age_hours"`
	Found         int           `json:"found"`
	Requeued      int           `json:"requeued"`
	Failed        int           `json:"failed"`
	Skipped       int           `json:"skipped"`
	CheckedAt     time.Time     `json:"checked_at"`
}

// DeadLetterEnvelope wraps a message that exhausted its retry budget
type DeadLetterEnvelope struct {
	OriginalMessage   json.RawMessage `json:"original_message"`
	OperationType     OperationType   `json:"operation_type"`
	FailureReason     string          `json:"failure_reason"`
	OriginalMessageID string          `json:"original_message_id"`
	DequeueCount      int             `json:"dequeue_count"`
	FailedAt          time.Time       `json:"failed_at"`
	InsertionTime     time.Time       `json:"insertion_time"`
}

// DeadLetterQueueStats describes one dead-letter queue
type DeadLetterQueueStats struct {
	MessageCount int    `json:"message_count"`
	Consumers    int    `json:"consumers"`
	Error        string `json:"error,omitempty"`
}

// DeadLetterStatistics is the operator view over every dead-letter queue
type DeadLetterStatistics struct {
	LastCheck time.Time                       `json:"last_check"`
	Queues    map[string]DeadLetterQueueStats `json:"queues"`
}
