package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// SyncItemsTask runs one sync. It is not retried: the next scheduled run
// resumes where this one stopped.
type SyncItemsTask struct {
	TaskState
	syncer Syncer
}

func NewSyncItemsTask(syncer Syncer) *SyncItemsTask {
	return &SyncItemsTask{
		TaskState: NewTaskState(TaskTypeSyncItems, 0),
		syncer:    syncer,
	}
}

func (t *SyncItemsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := t.syncer.Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to sync items: %w", err)
	}

	slog.Info("Task completed",
		"type", t.Type,
		"duration", t.Elapsed(),
		"created", result.Created,
		"absent", result.Absent,
		"skipped", result.Skipped,
		"failed", result.Failed)

	return nil
}
