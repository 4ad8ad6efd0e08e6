// Package veo is a thin client for Google's Veo video models served by the
// Gemini API. Generation is a long-running operation: Submit starts it, Poll
// refreshes it and Download fetches each finished video.
package veo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "veo-2.0-generate-001"

// Static errors for Veo client operations.
var (
	// ErrAPIKeyNotSet is returned when no API key is configured or found in the environment.
	ErrAPIKeyNotSet = errors.New("veo: GEMINI_API_KEY is not set")
	// ErrPromptRequired is returned when Submit is called with an empty prompt.
	ErrPromptRequired = errors.New("veo: prompt is required")
	// ErrOperationNameRequired is returned when Poll is called without a handle.
	ErrOperationNameRequired = errors.New("veo: operation name is required")
	// ErrVideoURIRequired is returned when Download is called without a URI.
	ErrVideoURIRequired = errors.New("veo: video URI is required")
	// ErrNoOperation is returned when the API answers without an operation.
	ErrNoOperation = errors.New("veo: no operation returned")
)

// Client defines the interface for interacting with the Veo API.
type Client interface {
	// Submit starts a generation and returns the initial operation state.
	Submit(ctx context.Context, prompt string, opts SubmitOptions) (Operation, error)

	// Poll returns the current state of the named operation.
	Poll(ctx context.Context, name string) (Operation, error)

	// Download fetches the bytes of a generated video.
	Download(ctx context.Context, uri string) ([]byte, error)

	// Model returns the model name requests are sent to.
	Model() string
}

// SDKClient implements Client on top of google.golang.org/genai.
type SDKClient struct {
	client  *genai.Client
	apiKey  string
	model   string
	baseURL string
}

// ClientOption is a function that configures an SDKClient.
type ClientOption func(*SDKClient)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(c *SDKClient) {
		c.apiKey = key
	}
}

// WithModel sets the model name.
func WithModel(model string) ClientOption {
	return func(c *SDKClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the SDK at a different API host.
func WithBaseURL(url string) ClientOption {
	return func(c *SDKClient) {
		c.baseURL = url
	}
}

// NewClient creates a new Veo client.
// The API key can be set via the WithAPIKey option. If not provided,
// it is read from GEMINI_API_KEY.
func NewClient(ctx context.Context, opts ...ClientOption) (*SDKClient, error) {
	c := &SDKClient{model: DefaultModel}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	cc := &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("veo: create genai client: %w", err)
	}
	c.client = client

	return c, nil
}

// Model returns the configured model name.
func (c *SDKClient) Model() string {
	return c.model
}

// Submit starts one video generation.
func (c *SDKClient) Submit(ctx context.Context, prompt string, opts SubmitOptions) (Operation, error) {
	if strings.TrimSpace(prompt) == "" {
		return Operation{}, ErrPromptRequired
	}

	cfg := &genai.GenerateVideosConfig{
		NumberOfVideos:   1,
		AspectRatio:      opts.AspectRatio,
		PersonGeneration: opts.PersonGeneration,
		NegativePrompt:   opts.NegativePrompt,
	}

	op, err := c.client.Models.GenerateVideos(ctx, c.model, prompt, nil, cfg)
	if err != nil {
		return Operation{}, fmt.Errorf("veo: generate videos: %w", err)
	}
	if op == nil {
		return Operation{}, ErrNoOperation
	}

	return fromSDK(op), nil
}

// Poll refreshes the named operation.
func (c *SDKClient) Poll(ctx context.Context, name string) (Operation, error) {
	if name == "" {
		return Operation{}, ErrOperationNameRequired
	}

	op, err := c.client.Operations.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: name}, nil)
	if err != nil {
		return Operation{}, fmt.Errorf("veo: get operation: %w", err)
	}
	if op == nil {
		return Operation{}, ErrNoOperation
	}

	return fromSDK(op), nil
}

// Download fetches the bytes behind a generated video URI.
func (c *SDKClient) Download(ctx context.Context, uri string) ([]byte, error) {
	if uri == "" {
		return nil, ErrVideoURIRequired
	}

	gv := &genai.GeneratedVideo{Video: &genai.Video{URI: uri}}
	data, err := c.client.Files.Download(ctx, genai.NewDownloadURIFromGeneratedVideo(gv), nil)
	if err != nil {
		return nil, fmt.Errorf("veo: download video: %w", err)
	}

	return data, nil
}

// fromSDK maps the SDK operation onto Operation.
func fromSDK(op *genai.GenerateVideosOperation) Operation {
	out := Operation{
		Name: op.Name,
		Done: op.Done,
	}

	if len(op.Error) > 0 {
		out.Error = operationError(op.Error)
	}

	if op.Response == nil {
		return out
	}

	for _, gv := range op.Response.GeneratedVideos {
		if gv == nil || gv.Video == nil {
			continue
		}
		out.Videos = append(out.Videos, Video{
			URI:      gv.Video.URI,
			MIMEType: gv.Video.MIMEType,
			Data:     gv.Video.VideoBytes,
		})
	}
	out.FilteredReasons = op.Response.RAIMediaFilteredReasons

	return out
}

// operationError renders the google.rpc.Status map as "message (code N)".
func operationError(m map[string]any) string {
	msg, _ := m["message"].(string)
	code, hasCode := m["code"]

	switch {
	case msg != "" && hasCode:
		return fmt.Sprintf("%s (code %v)", msg, code)
	case msg != "":
		return msg
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return strings.Join(parts, " ")
}
