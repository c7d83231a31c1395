package model

import "time"

// Outbox operations.
const (
	OutboxSet    = "set"    // create or replace the whole document
	OutboxUpdate = "update" // merge fields into an existing document
	OutboxDelete = "delete" // remove the document
)

// OutboxEntry is a pending write to the document mirror, recorded in the same
// transaction as the relational change it reflects.
type OutboxEntry struct {
	ID            int64          `json:"id"`
	Collection    string         `json:"collection"`
	DocID         string         `json:"doc_id"`
	Op            string         `json:"op"`
	Payload       map[string]any `json:"payload"`
	Attempts      int            `json:"attempts"`
	LastError     string         `json:"last_error,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	NextAttemptAt time.Time      `json:"next_attempt_at"`
	DeliveredAt   *time.Time     `json:"delivered_at,omitempty"`
	Dead          bool           `json:"dead"`
}

// OutboxStats summarises the backlog.
type OutboxStats struct {
	Pending int `json:"pending"`
	Dead    int `json:"dead"`
}
