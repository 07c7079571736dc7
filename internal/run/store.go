package run

import (
	"errors"
	"time"
)

// Run statuses.
const (
	StatusSuccess    = "success"
	StatusError      = "error"
	StatusNoToolCall = "no_tool_call"
)

// ErrNotFound is returned when a run record does not exist.
var ErrNotFound = errors.New("run not found")

// Record is the audit entry for one dispatched task.
type Record struct {
	ID             string    `json:"id"`
	Task           string    `json:"task"`
	Tool           string    `json:"tool,omitempty"`
	Status         string    `json:"status"`
	Detail         string    `json:"detail,omitempty"`
	OutputLocation string    `json:"output_location,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	DurationMs     int64     `json:"duration_ms"`
}

// Filter narrows List results.
type Filter struct {
	Status string
	Limit  int
}

// Store persists run records.
type Store interface {
	Save(rec Record) error
	Get(id string) (Record, error)
	List(filter Filter) ([]Record, error)
	Prune(olderThan time.Time) (int64, error)
	Close() error
}
