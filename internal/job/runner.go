package job

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maauso/veogen/internal/generator"
	"github.com/maauso/veogen/internal/metrics"
	"github.com/maauso/veogen/internal/storage"
)

// Runner defaults.
const (
	DefaultPollInterval      = 20 * time.Second
	DefaultMaxPolls          = 30
	DefaultExtendedMaxPolls  = 60
	DefaultMaxVariations     = 5
	DefaultVariationCount    = 2
	aggregateFailureMessage  = "Failed to generate any video variations"
	noVideosGeneratedMessage = "no videos generated"
)

// ErrPromptRequired is reported when a request has an empty prompt.
var ErrPromptRequired = errors.New("job: prompt is required")

// Runner drives a request through submit, poll, download and persist for
// every variation. It holds no per-request state and is safe for
// concurrent use.
type Runner struct {
	backend generator.Generator
	store   storage.Storage
	logger  *slog.Logger
	metrics *metrics.Metrics

	pollInterval     time.Duration
	maxPolls         int
	extendedMaxPolls int
	maxVariations    int
	concurrency      int
}

// RunnerOption is a function that configures a Runner.
type RunnerOption func(*Runner)

// WithPollInterval sets the wait between polls.
func WithPollInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

// WithMaxPolls sets the basic poll budget.
func WithMaxPolls(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.maxPolls = n
		}
	}
}

// WithExtendedMaxPolls sets the poll budget for extended requests.
func WithExtendedMaxPolls(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.extendedMaxPolls = n
		}
	}
}

// WithMaxVariations sets the upper clamp for VariationCount.
func WithMaxVariations(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.maxVariations = n
		}
	}
}

// WithConcurrency sets how many variations run at once. 1 runs them in order.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithMetrics records variation, poll and artifact counters.
func WithMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

// NewRunner creates a Runner for the given backend and artifact store.
func NewRunner(backend generator.Generator, store storage.Storage, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		backend:          backend,
		store:            store,
		logger:           logger,
		pollInterval:     DefaultPollInterval,
		maxPolls:         DefaultMaxPolls,
		extendedMaxPolls: DefaultExtendedMaxPolls,
		maxVariations:    DefaultMaxVariations,
		concurrency:      1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Backend returns the backend the runner submits to.
func (r *Runner) Backend() generator.Generator {
	return r.backend
}

// MaxVariations returns the configured variation clamp.
func (r *Runner) MaxVariations() int {
	return r.maxVariations
}

// variationOutcome is what one variation contributes to the Result.
type variationOutcome struct {
	job       *Job
	artifacts []Artifact
	failures  []Failure
}

// SubmitAndAwait runs every variation of req and returns the aggregated
// Result. Failures are reported in the Result, never as an error. The
// request succeeds when at least one artifact was persisted.
func (r *Runner) SubmitAndAwait(ctx context.Context, req Request) Result {
	start := time.Now()
	req = req.Normalize(r.maxVariations)

	res := Result{
		VariationsRequested: req.VariationCount,
		Videos:              []Artifact{},
		Prompt:              req.Prompt,
		AspectRatio:         string(req.AspectRatio),
		PersonGeneration:    string(req.PersonPolicy),
		Style:               string(req.Style),
		Model:               r.backend.Model(),
		Backend:             r.backend.Name(),
	}

	if req.Prompt == "" {
		res.ErrorKind = ErrorKindSubmission
		res.Error = ErrPromptRequired.Error()
		return r.finish(res, start)
	}

	n := req.VariationCount
	r.logger.Info("starting generation",
		slog.String("backend", res.Backend),
		slog.Int("variations", n),
		slog.String("aspect_ratio", res.AspectRatio),
		slog.String("budget", string(req.Budget)),
	)

	outcomes := make([]variationOutcome, n)
	var g errgroup.Group
	g.SetLimit(min(r.concurrency, n))
	for i := range n {
		g.Go(func() error {
			outcomes[i] = r.runVariation(ctx, req, i+1)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		res.Videos = append(res.Videos, o.artifacts...)
		res.Failures = append(res.Failures, o.failures...)
	}
	res.TotalVideos = len(res.Videos)
	res.Success = res.TotalVideos > 0
	if !res.Success {
		res.ErrorKind = ErrorKindAggregateFailure
		res.Error = aggregateFailureMessage
	}

	return r.finish(res, start)
}

func (r *Runner) finish(res Result, start time.Time) Result {
	now := time.Now()
	res.ElapsedSeconds = roundSeconds(now.Sub(start))
	res.Timestamp = now.Format(time.RFC3339)

	if res.Success {
		r.logger.Info("generation finished",
			slog.String("backend", res.Backend),
			slog.Int("videos", res.TotalVideos),
			slog.Int("failures", len(res.Failures)),
			slog.Float64("elapsed_seconds", res.ElapsedSeconds),
		)
	} else {
		r.logger.Warn("generation failed",
			slog.String("backend", res.Backend),
			slog.String("error_kind", string(res.ErrorKind)),
			slog.String("error", res.Error),
		)
	}
	return res
}

// runVariation submits one variation and drives it to a terminal status.
func (r *Runner) runVariation(ctx context.Context, req Request, variation int) variationOutcome {
	j := NewJob(variation, req)
	out := variationOutcome{job: j}
	name := r.backend.Name()
	logger := r.logger.With(slog.String("backend", name), slog.Int("variation", variation))

	fail := func(kind ErrorKind, msg string) variationOutcome {
		_ = j.Fail(kind, msg)
		logger.Warn("variation failed",
			slog.String("error_kind", string(kind)),
			slog.String("error", msg),
			slog.Int("polls", j.PollCount),
		)
		out.failures = append(out.failures, Failure{Variation: variation, ErrorKind: kind, Error: msg, Polls: j.PollCount})
		r.metrics.RecordVariation(name, metrics.OutcomeFailed)
		return out
	}

	if err := ctx.Err(); err != nil {
		return fail(ErrorKindCancelled, err.Error())
	}

	poll, err := r.backend.Submit(ctx, generator.SubmitOptions{
		Prompt:         req.Prompt,
		AspectRatio:    req.AspectRatio,
		PersonPolicy:   req.PersonPolicy,
		Style:          req.Style,
		NegativePrompt: req.NegativePrompt,
		ImagePath:      req.ImagePath,
	})
	if err != nil {
		if ctx.Err() != nil {
			return fail(ErrorKindCancelled, ctx.Err().Error())
		}
		return fail(ErrorKindSubmission, err.Error())
	}
	j.ID = poll.JobID
	logger.Info("variation submitted", slog.String("job_id", j.ID))

	maxPolls := r.maxPolls
	if req.Budget == BudgetExtended {
		maxPolls = r.extendedMaxPolls
	}

	for !poll.Done() {
		if j.PollCount >= maxPolls {
			_ = j.Timeout()
			logger.Warn("variation timed out",
				slog.String("job_id", j.ID),
				slog.Int("polls", j.PollCount),
			)
			out.failures = append(out.failures, Failure{Variation: variation, ErrorKind: j.ErrorKind, Error: j.Error, Polls: j.PollCount})
			r.metrics.RecordVariation(name, metrics.OutcomeTimedOut)
			return out
		}

		if err := sleep(ctx, r.pollInterval); err != nil {
			return fail(ErrorKindCancelled, err.Error())
		}

		poll, err = r.backend.Poll(ctx, j.ID)
		j.RecordPoll()
		r.metrics.RecordPoll(name)
		if err != nil {
			if ctx.Err() != nil {
				return fail(ErrorKindCancelled, ctx.Err().Error())
			}
			return fail(ErrorKindBackendJob, err.Error())
		}
		logger.Debug("polled", slog.String("job_id", j.ID), slog.Int("poll", j.PollCount), slog.String("status", string(poll.Status)))
	}

	if poll.Status == generator.StatusFailed {
		msg := poll.Error
		if msg == "" {
			msg = "backend reported failure"
		}
		return fail(ErrorKindBackendJob, msg)
	}
	if len(poll.Videos) == 0 {
		msg := noVideosGeneratedMessage
		if poll.Error != "" {
			msg += ": " + poll.Error
		}
		return fail(ErrorKindBackendJob, msg)
	}

	var lastErr string
	for idx, v := range poll.Videos {
		a, err := r.persist(ctx, variation, idx+1, v)
		if err != nil {
			lastErr = err.Error()
			logger.Warn("video download failed", slog.Int("video_index", idx+1), slog.String("error", lastErr))
			out.failures = append(out.failures, Failure{
				Variation: variation,
				Index:     idx + 1,
				ErrorKind: ErrorKindDownload,
				Error:     lastErr,
				Polls:     j.PollCount,
			})
			continue
		}
		logger.Info("video saved", slog.String("filename", a.Filename), slog.Int64("size_bytes", a.SizeBytes))
		out.artifacts = append(out.artifacts, a)
		r.metrics.RecordArtifact(name)
	}

	if len(out.artifacts) == 0 {
		_ = j.Fail(ErrorKindDownload, lastErr)
		r.metrics.RecordVariation(name, metrics.OutcomeFailed)
		return out
	}

	_ = j.Succeed()
	r.metrics.RecordVariation(name, metrics.OutcomeSucceeded)
	return out
}

// persist downloads one video and writes it under a unique filename.
func (r *Runner) persist(ctx context.Context, variation, index int, v generator.Video) (Artifact, error) {
	data, err := r.backend.DownloadOutput(ctx, v)
	if err != nil {
		return Artifact{}, err
	}

	saved, err := r.store.Save(ctx, storage.ArtifactName{
		Tag:       r.backend.Name(),
		Variation: variation,
		Index:     index,
		At:        time.Now(),
	}, data)
	if err != nil {
		return Artifact{}, err
	}

	return Artifact{
		Variation: variation,
		Index:     index,
		Filename:  saved.Filename,
		LocalPath: saved.Path,
		URL:       saved.URL,
		SizeBytes: saved.SizeBytes,
		SizeMB:    SizeMB(saved.SizeBytes),
		MIMEType:  saved.MIMEType,
	}, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
