package job

import (
	"sync"
	"time"

	"github.com/maauso/veogen/internal/job/id"
)

// TaskStatus represents the state of a background Task.
type TaskStatus string

const (
	// TaskInQueue indicates the task was accepted but has not started.
	TaskInQueue TaskStatus = "IN_QUEUE"
	// TaskRunning indicates the runner is working on the task.
	TaskRunning TaskStatus = "RUNNING"
	// TaskCompleted indicates at least one artifact was produced.
	TaskCompleted TaskStatus = "COMPLETED"
	// TaskFailed indicates the request produced no artifact.
	TaskFailed TaskStatus = "FAILED"
)

// validTaskTransitions defines which task state transitions are allowed.
var validTaskTransitions = map[TaskStatus][]TaskStatus{
	TaskInQueue:   {TaskRunning, TaskFailed},
	TaskRunning:   {TaskCompleted, TaskFailed},
	TaskCompleted: {},
	TaskFailed:    {},
}

func canTransitionTask(from, to TaskStatus) bool {
	for _, s := range validTaskTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Task is a fire-and-forget generation. Its ID is returned to the caller
// immediately and the Result is attached once the runner finishes.
type Task struct {
	mu sync.RWMutex

	ID          string
	Status      TaskStatus
	Request     Request
	Result      *Result
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// NewTask creates an IN_QUEUE task with a generated ID.
func NewTask(req Request) *Task {
	return NewTaskWithID(id.Generate(), req)
}

// NewTaskWithID creates an IN_QUEUE task with the given ID.
func NewTaskWithID(taskID string, req Request) *Task {
	now := time.Now()
	return &Task{
		ID:        taskID,
		Status:    TaskInQueue,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the task status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (t *Task) TransitionTo(status TaskStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transitionLocked(status)
}

func (t *Task) transitionLocked(status TaskStatus) error {
	if !canTransitionTask(t.Status, status) {
		return ErrInvalidTransition
	}

	t.Status = status
	t.UpdatedAt = time.Now()

	switch status {
	case TaskRunning:
		t.StartedAt = t.UpdatedAt
	case TaskCompleted, TaskFailed:
		t.CompletedAt = t.UpdatedAt
	}
	return nil
}

// Start transitions the task from IN_QUEUE to RUNNING.
func (t *Task) Start() error {
	return t.TransitionTo(TaskRunning)
}

// Finish attaches the result and moves the task to COMPLETED or FAILED
// according to res.Success.
func (t *Task) Finish(res Result) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := TaskCompleted
	if !res.Success {
		status = TaskFailed
	}
	if err := t.transitionLocked(status); err != nil {
		return err
	}
	t.Result = &res
	t.Error = res.Error
	return nil
}

// GetStatus returns the current task status (thread-safe).
func (t *Task) GetStatus() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Status
}

// IsTerminal returns true if the task is in a terminal state.
func (t *Task) IsTerminal() bool {
	s := t.GetStatus()
	return s == TaskCompleted || s == TaskFailed
}

// Clone creates a deep copy of the task for safe reads.
func (t *Task) Clone() *Task {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c := &Task{
		ID:          t.ID,
		Status:      t.Status,
		Request:     t.Request,
		Error:       t.Error,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
	if t.Result != nil {
		r := *t.Result
		r.Videos = append([]Artifact(nil), t.Result.Videos...)
		r.Failures = append([]Failure(nil), t.Result.Failures...)
		c.Result = &r
	}
	return c
}
