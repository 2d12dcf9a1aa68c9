package model

import (
	"encoding/json"
	"time"
)

// PageMessage asks a worker to fetch one page of the catalog index.
// Page is a pointer so a missing field can be told apart from page 0.
type PageMessage struct {
	Page     *int   `json:"page"`
	ImportID string `json:"import_id,omitempty"`
}

// DetailMessage asks a worker to refresh one show's full record
type DetailMessage struct {
	ShowID *int `json:"show_id"`
}

// QueueMessage is a transport-neutral delivered message
type QueueMessage struct {
	ID            string
	Body          []byte
	DequeueCount  int
	InsertionTime time.Time
}

// Decode unmarshals the JSON body into v
func (m QueueMessage) Decode(v interface{}) error {
	return json.Unmarshal(m.Body, v)
}

// JSONBody returns the body as raw JSON, quoting it when it is not valid JSON
func (m QueueMessage) JSONBody() json.RawMessage {
	if json.Valid(m.Body) {
		return json.RawMessage(m.Body)
	}
	quoted, _ := json.Marshal(string(m.Body))
	return quoted
}
