package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrServiceClosed is returned by Dispatch once Shutdown has started.
var ErrServiceClosed = errors.New("job: service is shutting down")

// Service offers the Runner either synchronously (Generate) or as a
// background Task whose status is polled separately (Dispatch, GetTask).
type Service struct {
	runner *Runner
	repo   Repository
	logger *slog.Logger

	// base is cancelled by Shutdown to stop background tasks.
	base   context.Context
	cancel context.CancelFunc

	// mu orders wg.Add in Dispatch against wg.Wait in Shutdown.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewService creates a new Service.
func NewService(runner *Runner, repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if repo == nil {
		repo = NewMemoryRepository()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Service{
		runner: runner,
		repo:   repo,
		logger: logger,
		base:   base,
		cancel: cancel,
	}
}

// Runner returns the underlying runner.
func (s *Service) Runner() *Runner {
	return s.runner
}

// Generate runs the request and blocks until every variation is terminal.
func (s *Service) Generate(ctx context.Context, req Request) Result {
	return s.runner.SubmitAndAwait(ctx, req)
}

// Dispatch stores an IN_QUEUE task and runs the request in the background.
// The task outlives ctx; it is only stopped by Shutdown.
func (s *Service) Dispatch(ctx context.Context, req Request) (*Task, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrServiceClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()

	task := NewTask(req)
	if err := s.repo.Save(ctx, task); err != nil {
		s.wg.Done()
		s.logger.Error("failed to save task",
			slog.String("task_id", task.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("save task: %w", err)
	}

	s.logger.Info("task dispatched",
		slog.String("task_id", task.ID),
		slog.Int("variations", req.VariationCount),
	)

	snapshot := task.Clone()
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(s.base, cancel)

	go func() {
		defer s.wg.Done()
		defer stop()
		defer cancel()
		s.run(runCtx, task)
	}()

	return snapshot, nil
}

func (s *Service) run(ctx context.Context, task *Task) {
	if err := task.Start(); err != nil {
		s.logger.Error("failed to start task", slog.String("task_id", task.ID), slog.String("error", err.Error()))
		return
	}
	s.save(ctx, task)

	res := s.runner.SubmitAndAwait(ctx, task.Request)
	if err := task.Finish(res); err != nil {
		s.logger.Error("failed to finish task", slog.String("task_id", task.ID), slog.String("error", err.Error()))
	}
	s.save(ctx, task)

	s.logger.Info("task finished",
		slog.String("task_id", task.ID),
		slog.String("status", string(task.GetStatus())),
		slog.Int("videos", res.TotalVideos),
	)
}

func (s *Service) save(ctx context.Context, task *Task) {
	// The task must be recorded even if the run was cancelled.
	if err := s.repo.Save(context.WithoutCancel(ctx), task); err != nil {
		s.logger.Error("failed to save task",
			slog.String("task_id", task.ID),
			slog.String("error", err.Error()),
		)
	}
}

// GetTask retrieves a task by ID.
func (s *Service) GetTask(ctx context.Context, id string) (*Task, error) {
	return s.repo.FindByID(ctx, id)
}

// ListTasks returns all known tasks, newest first.
func (s *Service) ListTasks(ctx context.Context) ([]*Task, error) {
	return s.repo.List(ctx)
}

// Wait blocks until every dispatched task has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Shutdown cancels running tasks and waits for them to record their
// result, or until ctx is done.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
