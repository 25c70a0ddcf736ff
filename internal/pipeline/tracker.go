package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Tracker receives job lifecycle updates from the executor. The store
// package provides the database-backed implementation; MemoryTracker below
// backs tests.
type Tracker interface {
	MarkRunning(ctx context.Context, jobID uuid.UUID) error
	SetCurrentModel(ctx context.Context, jobID uuid.UUID, model string) error
	// AddCompletedModel appends the model to the completed list and moves
	// progress to floor(100*completed/total).
	AddCompletedModel(ctx context.Context, jobID uuid.UUID, model string, completed, total int) error
	MarkCompleted(ctx context.Context, jobID uuid.UUID, failures map[string]string) error
	MarkFailed(ctx context.Context, jobID uuid.UUID, message string) error
	IsCancelled(ctx context.Context, jobID uuid.UUID) (bool, error)
}

// MemoryTracker records updates in memory.
type MemoryTracker struct {
	mu sync.Mutex

	Running         bool
	CurrentModels   []string
	CompletedModels []string
	ProgressSteps   []int
	Completed       bool
	Failures        map[string]string
	Failed          bool
	FailureMessage  string
	Cancelled       bool
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{}
}

func (t *MemoryTracker) MarkRunning(ctx context.Context, jobID uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Running = true
	return nil
}

func (t *MemoryTracker) SetCurrentModel(ctx context.Context, jobID uuid.UUID, model string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.CurrentModels = append(t.CurrentModels, model)
	return nil
}

func (t *MemoryTracker) AddCompletedModel(ctx context.Context, jobID uuid.UUID, model string, completed, total int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.CompletedModels = append(t.CompletedModels, model)
	progress := 0
	if total > 0 {
		progress = 100 * completed / total
	}
	t.ProgressSteps = append(t.ProgressSteps, progress)
	return nil
}

func (t *MemoryTracker) MarkCompleted(ctx context.Context, jobID uuid.UUID, failures map[string]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Completed = true
	t.Failures = failures
	return nil
}

func (t *MemoryTracker) MarkFailed(ctx context.Context, jobID uuid.UUID, message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Failed = true
	t.FailureMessage = message
	return nil
}

func (t *MemoryTracker) IsCancelled(ctx context.Context, jobID uuid.UUID) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Cancelled, nil
}

func (t *MemoryTracker) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Cancelled = true
}
