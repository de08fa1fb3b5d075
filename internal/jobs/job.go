// Package jobs owns the lifecycle of a statement conversion: upload,
// format detection, parsing and export. Every transition is persisted before
// the next stage starts so a crash leaves a queryable record behind.
package jobs

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusUploaded Status = "uploaded"
	StatusDetected Status = "detected"
	StatusParsed   Status = "parsed"
	StatusExported Status = "exported"
	StatusFailed   Status = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusExported || s == StatusFailed
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusUploaded, StatusDetected, StatusParsed, StatusExported, StatusFailed:
		return true
	}
	return false
}

var forward = map[Status]Status{
	StatusUploaded: StatusDetected,
	StatusDetected: StatusParsed,
	StatusParsed:   StatusExported,
}

// ErrTerminal is returned when a transition is attempted on an exported or
// failed job.
var ErrTerminal = errors.New("job is in a terminal state")

// ErrInvalidTransition matches every *InvalidTransitionError.
var ErrInvalidTransition = errors.New("invalid job transition")

// InvalidTransitionError reports a transition that skips or repeats a stage.
type InvalidTransitionError struct {
	From, To Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid job transition %s -> %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Job is the persisted record of one conversion request.
type Job struct {
	ID            string    `json:"id"`
	Status        Status    `json:"status"`
	Bank          string    `json:"bank,omitempty"`
	FormatID      string    `json:"formatId,omitempty"`
	ProductType   string    `json:"productType,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	Account       string    `json:"account,omitempty"`
	MovementCount int       `json:"movementCount"`
	DateFrom      string    `json:"dateFrom,omitempty"`
	DateTo        string    `json:"dateTo,omitempty"`
	InputPath     string    `json:"inputPath,omitempty"`
	PreviewPath   string    `json:"previewPath,omitempty"`
	OutputPath    string    `json:"outputPath,omitempty"`
	ErrorMessage  string    `json:"errorMessage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Version       int64     `json:"version"`
}

// New returns a job in the uploaded state.
func New(id, inputPath string, now time.Time) *Job {
	now = now.UTC()
	return &Job{
		ID:        id,
		Status:    StatusUploaded,
		InputPath: inputPath,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Summary is the metadata recorded when a job is parsed.
type Summary struct {
	MovementCount int
	Currency      string
	Account       string
	DateFrom      string
	DateTo        string
}

func (j *Job) advance(to Status) error {
	if j.Status.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, j.Status)
	}
	if forward[j.Status] != to {
		return &InvalidTransitionError{From: j.Status, To: to}
	}
	j.Status = to
	return nil
}

// MarkDetected records the detected format.
func (j *Job) MarkDetected(bank, formatID, productType string) error {
	if err := j.advance(StatusDetected); err != nil {
		return err
	}
	j.Bank = bank
	j.FormatID = formatID
	j.ProductType = productType
	return nil
}

// MarkParsed records the parse summary and the preview location. A summary
// without movements is rejected.
func (j *Job) MarkParsed(s Summary, previewPath string) error {
	if s.MovementCount <= 0 {
		return &EmptyResultError{}
	}
	if err := j.advance(StatusParsed); err != nil {
		return err
	}
	j.MovementCount = s.MovementCount
	j.Currency = s.Currency
	j.Account = s.Account
	j.DateFrom = s.DateFrom
	j.DateTo = s.DateTo
	j.PreviewPath = previewPath
	return nil
}

// MarkExported records the rendered file.
func (j *Job) MarkExported(outputPath string) error {
	if err := j.advance(StatusExported); err != nil {
		return err
	}
	j.OutputPath = outputPath
	return nil
}

// Fail moves a non-terminal job to failed. Metadata gathered so far is kept.
func (j *Job) Fail(message string) error {
	if j.Status.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminal, j.Status)
	}
	j.Status = StatusFailed
	j.ErrorMessage = message
	return nil
}
