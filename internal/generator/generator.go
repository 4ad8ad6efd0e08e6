// Package generator provides the common interface for video generation backends.
// The Veo and Stability adapters implement this interface.
package generator

import (
	"context"

	"github.com/maauso/veogen/internal/prompt"
)

// Status represents the status of a backend generation job.
type Status string

// Common job statuses across backends.
const (
	StatusPending   Status = "PENDING"   // Job submitted but not yet picked up
	StatusRunning   Status = "RUNNING"   // Job is currently processing
	StatusCompleted Status = "COMPLETED" // Job finished and produced output
	StatusFailed    Status = "FAILED"    // Job finished with an error
)

// IsTerminal returns true if the status represents a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SubmitOptions contains parameters for submitting one generation.
type SubmitOptions struct {
	Prompt         string
	AspectRatio    prompt.AspectRatio
	PersonPolicy   prompt.PersonPolicy
	Style          prompt.Style
	NegativePrompt string
	// ImagePath is the source image for image-to-video backends.
	ImagePath string
}

// Video is one media handle yielded by a finished job. Backends fill
// either URI (fetched by DownloadOutput) or Data (already inline).
type Video struct {
	URI      string
	MIMEType string
	Data     []byte
}

// PollResult contains the state of a job after Submit or Poll.
type PollResult struct {
	JobID  string
	Status Status
	Videos []Video
	Error  string
}

// Done reports whether the backend has finished the job.
func (r PollResult) Done() bool {
	return r.Status.IsTerminal()
}

// Generator defines the interface for video generation backends.
type Generator interface {
	// Name returns the short backend tag used in filenames and metrics.
	Name() string

	// Model returns the model the backend generates with.
	Model() string

	// Submit starts one generation. The result may already be done.
	Submit(ctx context.Context, opts SubmitOptions) (PollResult, error)

	// Poll returns the current state of the job.
	Poll(ctx context.Context, jobID string) (PollResult, error)

	// DownloadOutput returns the bytes of a finished video.
	DownloadOutput(ctx context.Context, v Video) ([]byte, error)
}
