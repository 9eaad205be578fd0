// Package document defines the per-document processing record, its status
// state machine, and the stores that persist it.
package document

import (
	"time"
)

// Status is the processing status of a document.
type Status string

// Processing statuses. Terminal statuses never transition except through
// an explicit operator retry (FAILED/CANCELLED back to QUEUED).
const (
	StatusUploaded    Status = "UPLOADED"
	StatusQueued      Status = "QUEUED"
	StatusProcessing  Status = "PROCESSING"
	StatusChunking    Status = "CHUNKING"
	StatusVectorizing Status = "VECTORIZING"
	StatusCompleted   Status = "COMPLETED"
	StatusFailed      Status = "FAILED"
	StatusRetrying    Status = "RETRYING"
	StatusCancelled   Status = "CANCELLED"
)

// transitions encodes the legal status transitions. The FAILED->QUEUED
// and CANCELLED->QUEUED edges exist only for the explicit Retry operation.
var transitions = map[Status][]Status{
	StatusUploaded:    {StatusQueued, StatusCancelled},
	StatusQueued:      {StatusProcessing, StatusCancelled},
	StatusProcessing:  {StatusChunking, StatusRetrying, StatusFailed, StatusCancelled},
	StatusChunking:    {StatusVectorizing, StatusRetrying, StatusFailed, StatusCancelled},
	StatusVectorizing: {StatusCompleted, StatusRetrying, StatusFailed, StatusCancelled},
	StatusRetrying:    {StatusQueued, StatusCancelled},
	StatusCompleted:   {},
	StatusFailed:      {StatusQueued},
	StatusCancelled:   {StatusQueued},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether s is a terminal status.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the edge s -> next is legal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Record is the persisted processing state of one document. It is mutated
// only by the single active task for its document ID; readers never write.
type Record struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	UserID   string `json:"user_id"`

	Status     Status `json:"status"`
	Progress   int    `json:"progress"`
	Error      string `json:"error,omitempty"`
	RetryCount int    `json:"retry_count"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
