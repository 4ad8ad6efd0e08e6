// Package server provides the HTTP surface of veogen: the tool webhook, the
// task API, static video files, metrics and the MCP endpoint.
// DTOs live here, separate from the domain types in internal/job.
package server

// ToolCallRequest is the body of POST /tools/{tool}.
type ToolCallRequest struct {
	// Parameters are passed to the tool as is.
	Parameters map[string]any `json:"parameters"`
}

// ToolCallResponse wraps a tool's JSON output in a string, the shape voice
// agent webhooks expect.
type ToolCallResponse struct {
	Result string `json:"result"`
}

// CreateTaskRequest is the body of POST /tasks.
type CreateTaskRequest struct {
	// Prompt describes the video to generate.
	Prompt string `json:"prompt" validate:"required,max=4000"`
	// AspectRatio is a ratio ("16:9") or a format word ("portrait").
	AspectRatio string `json:"aspect_ratio" validate:"omitempty,oneof=16:9 9:16 1:1 landscape horizontal wide portrait vertical mobile square"`
	// PersonGeneration is "dont_allow" or "allow_adult".
	PersonGeneration string `json:"person_generation" validate:"omitempty,oneof=dont_allow allow_adult"`
	// Style is an optional prompt enhancement.
	Style string `json:"style" validate:"omitempty,oneof=cinematic documentary artistic commercial realistic dramatic minimalist vibrant"`
	// Variations is clamped to the configured maximum.
	Variations int `json:"variations" validate:"omitempty,min=1,max=100"`
	// NegativePrompt lists what the video should avoid.
	NegativePrompt string `json:"negative_prompt" validate:"max=2000"`
	// ImagePath is a local regular file to animate. Required by image-to-video
	// backends. URLs other than file:// are rejected.
	ImagePath string `json:"image_path"`
	// Extended polls up to EXTENDED_MAX_POLLS instead of MAX_POLLS.
	Extended bool `json:"extended"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Backend   string `json:"backend"`
	Model     string `json:"model"`
	Timestamp string `json:"timestamp"`
}

// RootResponse describes the service at GET /.
type RootResponse struct {
	Message         string            `json:"message"`
	Status          string            `json:"status"`
	Backend         string            `json:"backend"`
	Model           string            `json:"model"`
	DefaultBehavior string            `json:"default_behavior"`
	Tools           []string          `json:"tools"`
	Endpoints       map[string]string `json:"endpoints"`
}
