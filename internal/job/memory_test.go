package job

import (
	"context"
	"testing"
	"time"
)

func TestMemoryRepository_Save(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	task := NewTask(Request{Prompt: "a cat"})

	if err := repo.Save(ctx, task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, err := repo.FindByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.ID != task.ID {
		t.Errorf("expected ID %s, got %s", task.ID, saved.ID)
	}
	if saved.Request.Prompt != "a cat" {
		t.Errorf("expected prompt to be stored, got %q", saved.Request.Prompt)
	}
}

func TestMemoryRepository_Save_Update(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	task := NewTask(Request{Prompt: "a cat"})

	_ = repo.Save(ctx, task)
	_ = task.Start()
	_ = task.Finish(Result{Success: true, TotalVideos: 1, Videos: []Artifact{{Variation: 1, Index: 1}}})
	_ = repo.Save(ctx, task)

	saved, _ := repo.FindByID(ctx, task.ID)
	if saved.Status != TaskCompleted {
		t.Errorf("expected status %s, got %s", TaskCompleted, saved.Status)
	}
	if saved.Result == nil || saved.Result.TotalVideos != 1 {
		t.Errorf("expected result with one video, got %+v", saved.Result)
	}
}

func TestMemoryRepository_FindByID_NotFound(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.FindByID(context.Background(), "nonexistent")
	if err != ErrTaskNotFound {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestMemoryRepository_ReturnsClones(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	task := NewTask(Request{Prompt: "a cat"})
	_ = repo.Save(ctx, task)

	// Mutating the original after Save must not leak into the repository.
	_ = task.Start()

	saved, _ := repo.FindByID(ctx, task.ID)
	if saved.Status != TaskInQueue {
		t.Errorf("expected stored status %s, got %s", TaskInQueue, saved.Status)
	}

	saved.Status = TaskFailed
	again, _ := repo.FindByID(ctx, task.ID)
	if again.Status != TaskInQueue {
		t.Errorf("expected stored status %s, got %s", TaskInQueue, again.Status)
	}
}

func TestMemoryRepository_List(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	older := NewTaskWithID("older", Request{})
	older.CreatedAt = time.Now().Add(-time.Minute)
	newer := NewTaskWithID("newer", Request{})
	_ = repo.Save(ctx, older)
	_ = repo.Save(ctx, newer)

	tasks, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "newer" || tasks[1].ID != "older" {
		t.Errorf("expected newest first, got %s, %s", tasks[0].ID, tasks[1].ID)
	}
}

func TestMemoryRepository_Delete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	task := NewTask(Request{})
	_ = repo.Save(ctx, task)

	if err := repo.Delete(ctx, task.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.FindByID(ctx, task.ID); err != ErrTaskNotFound {
		t.Errorf("expected ErrTaskNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, task.ID); err != ErrTaskNotFound {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestTask_Transitions(t *testing.T) {
	task := NewTask(Request{})
	if task.GetStatus() != TaskInQueue {
		t.Fatalf("expected %s, got %s", TaskInQueue, task.GetStatus())
	}

	if err := task.Finish(Result{Success: true}); err != ErrInvalidTransition {
		t.Errorf("expected ErrInvalidTransition finishing a queued task, got %v", err)
	}

	if err := task.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.StartedAt.IsZero() {
		t.Error("expected StartedAt to be set")
	}

	if err := task.Finish(Result{Success: false, Error: "Failed to generate any video variations"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.GetStatus() != TaskFailed {
		t.Errorf("expected %s, got %s", TaskFailed, task.GetStatus())
	}
	if task.Error == "" || task.CompletedAt.IsZero() || !task.IsTerminal() {
		t.Errorf("expected terminal failed task, got %+v", task)
	}

	if err := task.Start(); err != ErrInvalidTransition {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}
