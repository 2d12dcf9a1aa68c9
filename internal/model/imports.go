package model

import "time"

// ImportStatus represents the current state of a bulk import
type ImportStatus string

const (
	ImportPending    ImportStatus = "pending"
	ImportInProgress ImportStatus = "in_progress"
	ImportCompleted  ImportStatus = "completed"
	ImportFailed     ImportStatus = "failed"
)

// IsTerminal reports whether no further status transition is allowed
func (s ImportStatus) IsTerminal() bool {
	return s == ImportCompleted || s == ImportFailed
}

// ImportRun tracks one end-to-end pagination through the catalog index
type ImportRun struct {
	ImportID          string       `bson:"_id" json:"import_id"`
	Status            ImportStatus `bson:"status" json:"status"`
	StartPage         int          `bson:"start_page" json:"start_page"`
	EstimatedPages    int          `bson:"estimated_pages" json:"estimated_pages"`
	CompletedPages    int          `bson:"completed_pages" json:"completed_pages"`
	FailedPages       int          `bson:"failed_pages" json:"failed_pages"`
	LastProcessedPage *int         `bson:"last_processed_page,omitempty" json:"last_processed_page,omitempty"`
	StartTime         time.Time    `bson:"start_time" json:"start_time"`
	EndTime           *time.Time   `bson:"end_time,omitempty" json:"end_time,omitempty"`
	LastActivityTime  time.Time    `bson:"last_activity_time" json:"last_activity_time"`
}

// UnknownPageCount marks an import run without a page estimate
const UnknownPageCount = -1
