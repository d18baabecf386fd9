package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/quickcheck/app/database"
	"github.com/lysyi3m/quickcheck/app/ingest"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application to manage background task processing.
// Example usage:
//
//	scheduler := NewScheduler(engine, contentRepo, extractor, Options{Interval: 5 * time.Minute, WorkerCount: 2})
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewSyncItemsTask(engine))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// Syncer runs one upstream sync.
type Syncer interface {
	Run(ctx context.Context) (ingest.Result, error)
}

type ContentStore interface {
	GetStoriesForExtraction(ctx context.Context, limit, maxAttempts int) ([]database.StoryForExtraction, error)
	SaveContent(ctx context.Context, itemID uuid.UUID, content string, extractedAt time.Time) error
	SaveFailure(ctx context.Context, itemID uuid.UUID, reason string, attemptedAt time.Time) error
}

type ContentExtractor interface {
	Extract(ctx context.Context, pageURL string) (string, error)
}
