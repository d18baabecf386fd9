package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeSyncItems      TaskType = "sync_items"
	TaskTypeExtractContent TaskType = "extract_content"
)

const (
	DefaultMaxRetries = 3
	maxRetryDelay     = 30 * time.Second
)

// TaskInterface is a unit of work run by the scheduler's workers.
type TaskInterface interface {
	Execute(ctx context.Context) error
	State() *TaskState
}

// TaskState is the scheduler's bookkeeping for one task across attempts.
// Embed it to satisfy the State half of TaskInterface.
type TaskState struct {
	ID         uuid.UUID
	Type       TaskType
	Attempts   int
	MaxRetries int
	StartedAt  time.Time
}

func NewTaskState(taskType TaskType, maxRetries int) TaskState {
	return TaskState{
		ID:         uuid.New(),
		Type:       taskType,
		MaxRetries: maxRetries,
	}
}

func (s *TaskState) State() *TaskState {
	return s
}

func (s *TaskState) begin() {
	s.Attempts++
	s.StartedAt = time.Now()
}

// Retries is the number of attempts made after the first one.
func (s *TaskState) Retries() int {
	return max(s.Attempts-1, 0)
}

func (s *TaskState) CanRetry() bool {
	return s.Retries() < s.MaxRetries
}

// RetryDelay is the wait before the next attempt: one second, doubled on
// every retry, capped at maxRetryDelay.
func (s *TaskState) RetryDelay() time.Duration {
	return min(time.Second<<uint(min(s.Retries(), 5)), maxRetryDelay)
}

// Elapsed is the time spent in the current attempt.
func (s *TaskState) Elapsed() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	return time.Since(s.StartedAt)
}
