package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/maauso/veogen/internal/veo"
)

// VeoAdapter adapts the Veo client to the Generator interface.
type VeoAdapter struct {
	client veo.Client
}

// NewVeoAdapter creates a new Veo generator adapter.
func NewVeoAdapter(client veo.Client) *VeoAdapter {
	return &VeoAdapter{client: client}
}

// Name returns "veo".
func (a *VeoAdapter) Name() string {
	return "veo"
}

// Model returns the Veo model name.
func (a *VeoAdapter) Model() string {
	return a.client.Model()
}

// Submit starts a text-to-video operation.
func (a *VeoAdapter) Submit(ctx context.Context, opts SubmitOptions) (PollResult, error) {
	op, err := a.client.Submit(ctx, opts.Style.Enhance(opts.Prompt), veo.SubmitOptions{
		AspectRatio:      string(opts.AspectRatio),
		PersonGeneration: string(opts.PersonPolicy),
		NegativePrompt:   opts.NegativePrompt,
	})
	if err != nil {
		return PollResult{}, fmt.Errorf("veo adapter submit: %w", err)
	}
	return fromOperation(op), nil
}

// Poll refreshes the Veo operation.
func (a *VeoAdapter) Poll(ctx context.Context, jobID string) (PollResult, error) {
	op, err := a.client.Poll(ctx, jobID)
	if err != nil {
		return PollResult{}, fmt.Errorf("veo adapter poll: %w", err)
	}
	return fromOperation(op), nil
}

// DownloadOutput returns inline bytes when the API sent them, otherwise it
// fetches the video URI.
func (a *VeoAdapter) DownloadOutput(ctx context.Context, v Video) ([]byte, error) {
	if len(v.Data) > 0 {
		return v.Data, nil
	}
	data, err := a.client.Download(ctx, v.URI)
	if err != nil {
		return nil, fmt.Errorf("veo adapter download: %w", err)
	}
	return data, nil
}

// fromOperation maps a Veo operation to the common poll result.
func fromOperation(op veo.Operation) PollResult {
	res := PollResult{JobID: op.Name, Status: StatusRunning}
	if !op.Done {
		return res
	}

	if op.Error != "" {
		res.Status = StatusFailed
		res.Error = op.Error
		return res
	}

	res.Status = StatusCompleted
	for _, v := range op.Videos {
		res.Videos = append(res.Videos, Video{URI: v.URI, MIMEType: v.MIMEType, Data: v.Data})
	}
	// Safety filters finish the operation with no videos and a reason list.
	if len(res.Videos) == 0 && len(op.FilteredReasons) > 0 {
		res.Error = "filtered: " + strings.Join(op.FilteredReasons, "; ")
	}
	return res
}

// Compile-time check that VeoAdapter implements Generator.
var _ Generator = (*VeoAdapter)(nil)
