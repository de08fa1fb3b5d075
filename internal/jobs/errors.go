package jobs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by a Store when no job has the given id.
	ErrNotFound = errors.New("job not found")
	// ErrVersionConflict is returned by Store.Update when the stored record
	// changed since it was read.
	ErrVersionConflict = errors.New("job was modified concurrently")
	// ErrNotExportable is returned when a job has not reached the parsed
	// state, or failed.
	ErrNotExportable = errors.New("job is not exportable")
	// ErrMissingInput is returned when the stored input document is gone.
	ErrMissingInput = errors.New("input file missing")
	// ErrNoPreview is returned for jobs that never reached the parsed state.
	ErrNoPreview = errors.New("job has no preview")
)

// EmptyResultError is returned when a parser finds no movements.
type EmptyResultError struct{}

func (e *EmptyResultError) Error() string {
	return "no movements found"
}

// UnexpectedError wraps any other failure of a pipeline stage.
type UnexpectedError struct {
	Stage string
	Err   error
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *UnexpectedError) Unwrap() error {
	return e.Err
}
