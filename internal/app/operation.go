package app

import (
	"time"

	"github.com/google/uuid"
)

// Operation is one CLI invocation. Its ID tags every log line written while it runs.
type Operation struct {
	ID        string
	Name      string
	User      string
	StartedAt time.Time
	Err       error
}

// NewOperation starts an operation named after the CLI command.
func NewOperation(name string, now time.Time) *Operation {
	return &Operation{ID: uuid.NewString(), Name: name, StartedAt: now}
}

// Record keeps the first error seen by the operation and returns err unchanged.
func (op *Operation) Record(err error) error {
	if err != nil && op.Err == nil {
		op.Err = err
	}
	return err
}

// Status is "success" or "error".
func (op *Operation) Status() string {
	if op.Err != nil {
		return "error"
	}
	return "success"
}
