package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/quickcheck/app/database"
)

const (
	DefaultExtractionBatch       = 20
	DefaultMaxExtractionAttempts = 3
)

type ExtractContentTask struct {
	TaskState
	contentRepo      ContentStore
	contentExtractor ContentExtractor
	timeout          time.Duration
	batchSize        int
	maxAttempts      int
}

func NewExtractContentTask(contentRepo ContentStore, contentExtractor ContentExtractor, timeout time.Duration) *ExtractContentTask {
	return &ExtractContentTask{
		TaskState:        NewTaskState(TaskTypeExtractContent, DefaultMaxRetries),
		contentRepo:      contentRepo,
		contentExtractor: contentExtractor,
		timeout:          timeout,
		batchSize:        DefaultExtractionBatch,
		maxAttempts:      DefaultMaxExtractionAttempts,
	}
}

func (t *ExtractContentTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	stories, err := t.contentRepo.GetStoriesForExtraction(ctx, t.batchSize, t.maxAttempts)
	if err != nil {
		return fmt.Errorf("failed to get stories for content extraction: %w", err)
	}

	if len(stories) == 0 {
		slog.Debug("No stories need content extraction")
		return nil
	}

	successCount := 0
	errorCount := 0

	for _, story := range stories {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := t.extractContentForStory(ctx, story); err != nil {
			slog.Error("Failed to extract content for story", "item_id", story.ID, "url", story.URL, "error", err)
			errorCount++

			if err := t.contentRepo.SaveFailure(ctx, story.ID, err.Error(), time.Now().UTC()); err != nil {
				slog.Error("Failed to update content extraction status", "item_id", story.ID, "error", err)
			}
			continue
		}
		successCount++
	}

	slog.Info("Task completed",
		"type", t.Type,
		"duration", t.Elapsed(),
		"success", successCount,
		"errors", errorCount)

	return nil
}

func (t *ExtractContentTask) extractContentForStory(ctx context.Context, story database.StoryForExtraction) error {
	extractCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	extracted, err := t.contentExtractor.Extract(extractCtx, story.URL)
	if err != nil {
		return err
	}

	if err := t.contentRepo.SaveContent(ctx, story.ID, extracted, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save extracted content: %w", err)
	}

	slog.Debug("Content extracted successfully", "item_id", story.ID, "url", story.URL, "content_length", len(extracted))
	return nil
}
