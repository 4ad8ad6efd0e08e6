// Package generatortest provides an in-memory Generator for tests.
package generatortest

import (
	"context"
	"fmt"
	"sync"

	"github.com/maauso/veogen/internal/generator"
)

// Video is opaque binary content that storage saves as video/mp4.
var Video = []byte{0x00, 0x01, 0x02, 0x03, 0xfe, 0xff, 0x00, 0x10}

// Backend is a Generator that finishes every job after PollsToFinish polls
// with VideosPerJob copies of Video. SubmitErr makes every submission fail.
type Backend struct {
	PollsToFinish int
	VideosPerJob  int
	SubmitErr     error

	mu       sync.Mutex
	requests []generator.SubmitOptions
	polls    map[string]int
}

// New returns a Backend that finishes on submit with one video.
func New() *Backend {
	return &Backend{VideosPerJob: 1}
}

// Name returns "test".
func (b *Backend) Name() string { return "test" }

// Model returns "test-model".
func (b *Backend) Model() string { return "test-model" }

// Submit records opts and starts a job.
func (b *Backend) Submit(_ context.Context, opts generator.SubmitOptions) (generator.PollResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.requests = append(b.requests, opts)
	if b.SubmitErr != nil {
		return generator.PollResult{}, b.SubmitErr
	}

	jobID := fmt.Sprintf("job-%d", len(b.requests))
	if b.PollsToFinish <= 0 {
		return b.done(jobID), nil
	}
	return generator.PollResult{JobID: jobID, Status: generator.StatusRunning}, nil
}

// Poll advances the job.
func (b *Backend) Poll(_ context.Context, jobID string) (generator.PollResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.polls == nil {
		b.polls = make(map[string]int)
	}
	b.polls[jobID]++
	if b.polls[jobID] >= b.PollsToFinish {
		return b.done(jobID), nil
	}
	return generator.PollResult{JobID: jobID, Status: generator.StatusRunning}, nil
}

// DownloadOutput returns the inline bytes.
func (b *Backend) DownloadOutput(_ context.Context, v generator.Video) ([]byte, error) {
	return v.Data, nil
}

// Requests returns the submitted options in order.
func (b *Backend) Requests() []generator.SubmitOptions {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]generator.SubmitOptions(nil), b.requests...)
}

func (b *Backend) done(jobID string) generator.PollResult {
	res := generator.PollResult{JobID: jobID, Status: generator.StatusCompleted}
	for i := 0; i < b.VideosPerJob; i++ {
		res.Videos = append(res.Videos, generator.Video{URI: fmt.Sprintf("%s/%d", jobID, i), Data: Video})
	}
	return res
}

var _ generator.Generator = (*Backend)(nil)
