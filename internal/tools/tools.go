// Package tools maps named tool calls with loosely typed parameters onto the
// job service and the artifact store. The webhook and MCP transports share it.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maauso/veogen/internal/generator"
	"github.com/maauso/veogen/internal/job"
	"github.com/maauso/veogen/internal/metrics"
	"github.com/maauso/veogen/internal/prompt"
	"github.com/maauso/veogen/internal/storage"
)

// Tool names.
const (
	GenerateVideo      = "generate_video"
	GenerateBasic      = "generate_video_basic"
	GenerateSingle     = "generate_video_single"
	GenerateAdvanced   = "generate_video_advanced"
	GenerateFromSpeech = "generate_from_speech"
	VideoStatusTool    = "get_video_status"
	ListRecentTool     = "list_recent_videos"
	TaskStatusTool     = "get_task_status"
)

// Names lists every tool in a stable order.
var Names = []string{
	GenerateVideo,
	GenerateBasic,
	GenerateSingle,
	GenerateAdvanced,
	GenerateFromSpeech,
	VideoStatusTool,
	ListRecentTool,
	TaskStatusTool,
}

// Static errors returned by Call. Their messages are shown to callers as is.
var (
	ErrUnknownTool          = errors.New("unknown tool")
	ErrPromptRequired       = errors.New("no prompt provided")
	ErrSpeechRequired       = errors.New("no speech text provided")
	ErrNoPromptInSpeech     = errors.New("no video description found in speech")
	ErrVideoPathRequired    = errors.New("no video path provided")
	ErrTaskIDRequired       = errors.New("no task id provided")
	ErrTaskNotFound         = errors.New("task not found")
	ErrMissingConfiguration = errors.New("tools: job service and storage are required")
)

// Params are the raw parameters of a tool call.
type Params map[string]any

// String returns the named parameter as a trimmed string, or def when it
// is absent or empty.
func (p Params) String(key, def string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case fmt.Stringer:
		s = x.String()
	default:
		s = fmt.Sprint(x)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

// Bool reports whether the named parameter is true. Booleans and strings
// such as "true", "yes" and "1" are accepted.
func (p Params) Bool(key string) bool {
	if b, ok := p[key].(bool); ok {
		return b
	}
	switch strings.ToLower(p.String(key, "")) {
	case "true", "yes", "1":
		return true
	}
	return false
}

// Toolbox executes tool calls.
type Toolbox struct {
	service *job.Service
	store   storage.Storage
	logger  *slog.Logger
	metrics *metrics.Metrics

	async             bool
	defaultVariations int
	maxVariations     int
}

// Option is a function that configures a Toolbox.
type Option func(*Toolbox)

// WithAsync makes generation tools dispatch a background task and return
// its id instead of waiting for the result.
func WithAsync(enabled bool) Option {
	return func(t *Toolbox) {
		t.async = enabled
	}
}

// WithDefaultVariations sets the variation count used when none is given
// or the given one is not a number.
func WithDefaultVariations(n int) Option {
	return func(t *Toolbox) {
		if n > 0 {
			t.defaultVariations = n
		}
	}
}

// WithMetrics records tool call counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Toolbox) {
		t.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Toolbox) {
		if l != nil {
			t.logger = l
		}
	}
}

// New creates a Toolbox.
func New(service *job.Service, store storage.Storage, opts ...Option) (*Toolbox, error) {
	if service == nil || store == nil {
		return nil, ErrMissingConfiguration
	}
	t := &Toolbox{
		service:           service,
		store:             store,
		logger:            slog.Default(),
		defaultVariations: job.DefaultVariationCount,
		maxVariations:     service.Runner().MaxVariations(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Async reports whether generation tools dispatch background tasks.
func (t *Toolbox) Async() bool {
	return t.async
}

// Backend returns the name of the generation backend.
func (t *Toolbox) Backend() string {
	return t.service.Runner().Backend().Name()
}

// Model returns the model the backend generates with.
func (t *Toolbox) Model() string {
	return t.service.Runner().Backend().Model()
}

// Call runs the named tool. The returned value is JSON-encodable.
func (t *Toolbox) Call(ctx context.Context, name string, p Params) (any, error) {
	start := time.Now()
	out, err := t.call(ctx, name, p)

	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	} else if res, ok := out.(job.Result); ok && !res.Success {
		status = metrics.StatusError
	}
	if !errors.Is(err, ErrUnknownTool) {
		t.metrics.RecordToolCall(name, status, time.Since(start))
	}

	t.logger.Info("tool call completed",
		slog.String("tool", name),
		slog.String("status", status),
		slog.Duration("duration", time.Since(start)),
	)
	return out, err
}

func (t *Toolbox) call(ctx context.Context, name string, p Params) (any, error) {
	switch name {
	case GenerateVideo, GenerateBasic, GenerateSingle, GenerateAdvanced, GenerateFromSpeech:
		req, err := t.RequestFor(name, p)
		if err != nil {
			return nil, err
		}
		return t.Generate(ctx, req)
	case VideoStatusTool:
		ref := p.String("video_path", "")
		if ref == "" {
			return nil, ErrVideoPathRequired
		}
		return t.VideoStatus(ctx, ref), nil
	case ListRecentTool:
		limit := prompt.ParseVariationCount(p["limit"], storage.DefaultListLimit, 100)
		return t.ListRecent(ctx, limit), nil
	case TaskStatusTool:
		id := p.String("task_id", "")
		if id == "" {
			return nil, ErrTaskIDRequired
		}
		return t.TaskStatus(ctx, id)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
}

// RequestFor builds the generation request a generate tool asks for.
func (t *Toolbox) RequestFor(name string, p Params) (job.Request, error) {
	req := job.Request{
		AspectRatio:    prompt.DefaultAspectRatio,
		PersonPolicy:   prompt.DefaultPersonPolicy,
		VariationCount: t.defaultVariations,
		ImagePath:      p.String("image_path", ""),
		NegativePrompt: p.String("negative_prompt", ""),
		Budget:         job.BudgetBasic,
	}

	switch name {
	case GenerateVideo:
		req.Prompt = p.String("prompt", "")
		if req.Prompt == "" {
			return job.Request{}, ErrPromptRequired
		}
		req.AspectRatio = prompt.ParseAspectRatio(p.String("aspect_ratio", p.String("format_type", "")))
		req.PersonPolicy = prompt.ParsePersonPolicy(p.String("person_generation", p.String("allow_people", "")))
		req.Style = prompt.ParseStyle(p.String("style", ""))
		req.VariationCount = prompt.ParseVariationCount(p["variations"], t.defaultVariations, t.maxVariations)
		if p.Bool("extended") {
			req.Budget = job.BudgetExtended
		}

	case GenerateBasic, GenerateSingle:
		req.Prompt = p.String("prompt", "")
		if req.Prompt == "" {
			return job.Request{}, ErrPromptRequired
		}
		if name == GenerateSingle {
			req.VariationCount = 1
		}

	case GenerateAdvanced:
		req.Prompt = p.String("prompt", "")
		if req.Prompt == "" {
			return job.Request{}, ErrPromptRequired
		}
		req.Style = prompt.ParseStyle(p.String("style", string(prompt.StyleCinematic)))
		req.AspectRatio = prompt.ParseAspectRatio(p.String("format_type", "landscape"))
		req.PersonPolicy = prompt.ParsePersonPolicy(p.String("allow_people", "no"))
		req.VariationCount = prompt.ParseVariationCount(p["variations"], t.defaultVariations, t.maxVariations)
		req.Budget = job.BudgetExtended

	case GenerateFromSpeech:
		speech := p.String("speech_text", "")
		if speech == "" {
			return job.Request{}, ErrSpeechRequired
		}
		req.Prompt = prompt.FromSpeech(speech)
		if req.Prompt == "" {
			return job.Request{}, ErrNoPromptInSpeech
		}
		req.Style = prompt.ParseStyle(p.String("style", string(prompt.StyleCinematic)))
		req.AspectRatio = prompt.ParseAspectRatio(p.String("format_type", "landscape"))
		req.PersonPolicy = prompt.PersonDontAllow
		req.Budget = job.BudgetExtended

	default:
		return job.Request{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	if req.ImagePath != "" {
		src, err := generator.ResolveImagePath(req.ImagePath)
		if err != nil {
			return job.Request{}, err
		}
		req.ImagePath = src
	}
	return req, nil
}

// Generate runs req synchronously, or dispatches it when the toolbox is
// async. The result is a job.Result or a Dispatched.
func (t *Toolbox) Generate(ctx context.Context, req job.Request) (any, error) {
	if !t.async {
		return t.service.Generate(ctx, req), nil
	}
	return t.Dispatch(ctx, req)
}

// Dispatch starts req as a background task.
func (t *Toolbox) Dispatch(ctx context.Context, req job.Request) (Dispatched, error) {
	task, err := t.service.Dispatch(ctx, req)
	if err != nil {
		return Dispatched{}, err
	}
	return Dispatched{
		Success:             true,
		TaskID:              task.ID,
		Status:              string(task.Status),
		VariationsRequested: prompt.ClampVariations(req.VariationCount, t.maxVariations),
		Message:             "Video generation started. Check progress with get_task_status.",
		Timestamp:           task.CreatedAt.Format(time.RFC3339),
	}, nil
}

// VideoStatus reports whether a generated video exists. Failures are
// reported in the result.
func (t *Toolbox) VideoStatus(ctx context.Context, ref string) VideoStatus {
	out := VideoStatus{VideoPath: ref, Timestamp: now()}

	st, err := t.store.Stat(ctx, ref)
	if err != nil {
		out.Status = "error"
		out.Error = err.Error()
		return out
	}
	if !st.Exists {
		out.Status = "not_found"
		return out
	}

	out.Status = "available"
	out.Exists = true
	out.LocalPath = st.Path
	out.SizeBytes = st.SizeBytes
	out.FileSizeMB = job.SizeMB(st.SizeBytes)
	out.Modified = st.ModTime.Format(time.RFC3339)
	return out
}

// ListRecent lists the newest artifacts in the output directory.
func (t *Toolbox) ListRecent(ctx context.Context, limit int) RecentVideos {
	out := RecentVideos{Videos: []RecentVideo{}, Timestamp: now()}

	listing, err := t.store.ListRecent(ctx, limit)
	if err != nil {
		out.Error = err.Error()
		return out
	}

	out.OutputDirectory = listing.Dir
	out.TotalFiles = listing.Total
	for _, a := range listing.Artifacts {
		out.Videos = append(out.Videos, RecentVideo{
			Filename:  a.Filename,
			Path:      a.Path,
			SizeBytes: a.SizeBytes,
			SizeMB:    job.SizeMB(a.SizeBytes),
			Created:   a.ModTime.Format(time.RFC3339),
			URL:       a.URL,
		})
	}
	out.Count = len(out.Videos)
	if out.TotalFiles == 0 {
		out.Message = "No videos generated yet"
	}
	return out
}

// TaskStatus reports the state of a background task.
func (t *Toolbox) TaskStatus(ctx context.Context, id string) (TaskStatus, error) {
	task, err := t.service.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, job.ErrTaskNotFound) {
			return TaskStatus{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
		return TaskStatus{}, err
	}

	out := TaskStatus{
		TaskID:    task.ID,
		Status:    string(task.Status),
		CreatedAt: task.CreatedAt.Format(time.RFC3339),
		Error:     task.Error,
		Result:    task.Result,
		Timestamp: now(),
	}
	if !task.StartedAt.IsZero() {
		out.StartedAt = task.StartedAt.Format(time.RFC3339)
	}
	if !task.CompletedAt.IsZero() {
		out.CompletedAt = task.CompletedAt.Format(time.RFC3339)
	}
	return out, nil
}

func now() string {
	return time.Now().Format(time.RFC3339)
}
