// Package job drives video generations from submission to persisted
// artifacts. A Job tracks one variation against the backend; the Runner fans
// a request out into variations and folds them into a Result; the Service
// offers the runner synchronously or as a background Task.
package job

import (
	"errors"
	"time"
)

// Status represents the current state of a variation Job.
type Status string

const (
	// StatusPending indicates the job was submitted but not yet polled.
	StatusPending Status = "PENDING"
	// StatusPolling indicates at least one poll has been issued.
	StatusPolling Status = "POLLING"
	// StatusSucceeded indicates at least one artifact was persisted.
	StatusSucceeded Status = "SUCCEEDED"
	// StatusFailed indicates the job ended with an error.
	StatusFailed Status = "FAILED"
	// StatusTimedOut indicates the poll budget ran out before completion.
	StatusTimedOut Status = "TIMED_OUT"
)

// ErrorKind classifies why a variation or a whole request failed.
type ErrorKind string

const (
	ErrorKindSubmission       ErrorKind = "submission_error"
	ErrorKindPollTimeout      ErrorKind = "poll_timeout"
	ErrorKindBackendJob       ErrorKind = "backend_job_error"
	ErrorKindDownload         ErrorKind = "download_error"
	ErrorKindAggregateFailure ErrorKind = "aggregate_failure"
	ErrorKindCancelled        ErrorKind = "cancelled"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusPolling, StatusSucceeded, StatusFailed, StatusTimedOut},
	StatusPolling:   {StatusSucceeded, StatusFailed, StatusTimedOut},
	StatusSucceeded: {},
	StatusFailed:    {},
	StatusTimedOut:  {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Job is one variation of a request as seen by the backend. It is owned by
// the goroutine running the variation and is not safe for concurrent use.
type Job struct {
	// ID is the backend handle, empty until submission succeeds.
	ID string
	// Variation is the 1-based variation number.
	Variation int
	Request   Request
	Status    Status
	// PollCount is the number of polls issued. It never decreases.
	PollCount   int
	ErrorKind   ErrorKind
	Error       string
	CreatedAt   time.Time
	CompletedAt time.Time
}

// NewJob creates a PENDING job for the given variation.
func NewJob(variation int, req Request) *Job {
	return &Job{
		Variation: variation,
		Request:   req,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}
	j.Status = status
	if j.IsTerminal() {
		j.CompletedAt = time.Now()
	}
	return nil
}

// RecordPoll counts one poll and moves a PENDING job to POLLING.
func (j *Job) RecordPoll() {
	if j.IsTerminal() {
		return
	}
	j.PollCount++
	if j.Status == StatusPending {
		j.Status = StatusPolling
	}
}

// Succeed marks the job SUCCEEDED.
func (j *Job) Succeed() error {
	return j.TransitionTo(StatusSucceeded)
}

// Fail marks the job FAILED with the given kind and message.
func (j *Job) Fail(kind ErrorKind, msg string) error {
	if err := j.TransitionTo(StatusFailed); err != nil {
		return err
	}
	j.ErrorKind = kind
	j.Error = msg
	return nil
}

// Timeout marks the job TIMED_OUT.
func (j *Job) Timeout() error {
	if err := j.TransitionTo(StatusTimedOut); err != nil {
		return err
	}
	j.ErrorKind = ErrorKindPollTimeout
	j.Error = "video generation timed out"
	return nil
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	return j.Status == StatusSucceeded || j.Status == StatusFailed || j.Status == StatusTimedOut
}
