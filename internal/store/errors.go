package store

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

var (
	// ErrNotFound is wrapped by NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrCapacity is wrapped by CapacityError.
	ErrCapacity = errors.New("storage capacity exceeded")
	// ErrCorrupt marks stored data that could not be decoded.
	ErrCorrupt = errors.New("corrupted data")
)

// NotFoundError reports a missing rubric, evaluation, student or group.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// CapacityError reports a write that exceeds the storage quota.
// Narrowed is set once the single-record retry has failed too.
type CapacityError struct {
	Collection string
	Size       int
	Limit      int
	Narrowed   bool
}

func (e *CapacityError) Error() string {
	msg := fmt.Sprintf("write to %s needs %s, limit is %s",
		e.Collection, humanize.Bytes(uint64(e.Size)), humanize.Bytes(uint64(e.Limit)))
	if e.Narrowed {
		msg += " (narrowed retry failed)"
	}
	return msg
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacity
}
