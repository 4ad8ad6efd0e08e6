package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maauso/veogen/internal/media"
	"github.com/maauso/veogen/internal/stability"
)

// StabilityModel is the model reported for the Stability backend.
const StabilityModel = "stable-video-diffusion"

// Static errors for the stability adapter.
var (
	// ErrImageRequired is returned when no source image is given.
	ErrImageRequired = errors.New("stability adapter: source image is required")
	// ErrProcessorRequired is returned when the adapter has no media processor.
	ErrProcessorRequired = errors.New("stability adapter: media processor is required")
)

// StabilityAdapter adapts the Stability client to the Generator interface.
// The source image is resized to the frame the endpoint accepts before upload.
type StabilityAdapter struct {
	client    stability.Client
	processor media.Processor
}

// NewStabilityAdapter creates a new Stability generator adapter.
func NewStabilityAdapter(client stability.Client, processor media.Processor) *StabilityAdapter {
	return &StabilityAdapter{client: client, processor: processor}
}

// Name returns "stability".
func (a *StabilityAdapter) Name() string {
	return "stability"
}

// Model returns StabilityModel.
func (a *StabilityAdapter) Model() string {
	return StabilityModel
}

// Submit resizes the source image and starts an image-to-video generation.
func (a *StabilityAdapter) Submit(ctx context.Context, opts SubmitOptions) (PollResult, error) {
	if opts.ImagePath == "" {
		return PollResult{}, ErrImageRequired
	}
	if a.processor == nil {
		return PollResult{}, ErrProcessorRequired
	}
	src, err := ResolveImagePath(opts.ImagePath)
	if err != nil {
		return PollResult{}, err
	}

	tempDir, err := os.MkdirTemp("", "stability-src-*")
	if err != nil {
		return PollResult{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(tempDir)
	}()

	frame := media.FrameFor(string(opts.AspectRatio))
	resized := filepath.Join(tempDir, "image.png")
	if err := a.processor.ResizeImageWithPadding(ctx, src, resized, frame.Width, frame.Height); err != nil {
		return PollResult{}, fmt.Errorf("resize source image: %w", err)
	}

	image, err := os.ReadFile(resized) // #nosec G304 - resized is constructed internally
	if err != nil {
		return PollResult{}, fmt.Errorf("read resized image: %w", err)
	}

	motion := opts.Style.Motion()
	id, err := a.client.Submit(ctx, image, stability.SubmitOptions{
		CfgScale:       motion.CfgScale,
		MotionBucketID: motion.MotionBucketID,
	})
	if err != nil {
		return PollResult{}, fmt.Errorf("stability adapter submit: %w", err)
	}

	return PollResult{JobID: id, Status: StatusPending}, nil
}

// Poll checks the generation; a finished one carries the video inline.
func (a *StabilityAdapter) Poll(ctx context.Context, jobID string) (PollResult, error) {
	result, err := a.client.Poll(ctx, jobID)
	if err != nil {
		return PollResult{}, fmt.Errorf("stability adapter poll: %w", err)
	}

	res := PollResult{JobID: jobID}
	switch result.Status {
	case stability.StatusInProgress:
		res.Status = StatusRunning
	case stability.StatusComplete:
		res.Status = StatusCompleted
		res.Videos = []Video{{MIMEType: result.MIMEType, Data: result.Video}}
	default:
		res.Status = StatusFailed
		res.Error = result.Error
	}
	return res, nil
}

// DownloadOutput returns the inline video bytes.
func (a *StabilityAdapter) DownloadOutput(ctx context.Context, v Video) ([]byte, error) {
	if len(v.Data) == 0 {
		return nil, fmt.Errorf("stability adapter download: %w", stability.ErrEmptyVideo)
	}
	return v.Data, nil
}

// Compile-time check that StabilityAdapter implements Generator.
var _ Generator = (*StabilityAdapter)(nil)
