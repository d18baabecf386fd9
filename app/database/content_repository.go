package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ContentRepository stores article text extracted from story URLs
type ContentRepository struct {
	db *DB
}

// NewContentRepository creates a new content repository
func NewContentRepository(db *DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// GetStoriesForExtraction returns stories with a URL that have no extracted
// content yet, or whose previous attempts failed fewer than maxAttempts times
func (r *ContentRepository) GetStoriesForExtraction(ctx context.Context, limit, maxAttempts int) ([]StoryForExtraction, error) {
	var stories []StoryForExtraction
	err := r.db.SelectContext(ctx, &stories, `
		SELECT i.id, s.url
		FROM stories s
		JOIN items i ON i.id = s.item_id
		LEFT JOIN story_contents sc ON sc.item_id = s.item_id
		WHERE s.url IS NOT NULL AND s.url != ''
		  AND i.deleted = 0 AND i.dead = 0
		  AND (sc.item_id IS NULL OR (sc.status = 'failed' AND sc.attempts < ?))
		ORDER BY i.time IS NULL, i.time DESC
		LIMIT ?
	`, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get stories for extraction: %w", err)
	}
	return stories, nil
}

// SaveContent records successfully extracted content for a story
func (r *ContentRepository) SaveContent(ctx context.Context, itemID uuid.UUID, content string, extractedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO story_contents (item_id, status, content, error, attempts, extracted_at)
		VALUES (?, 'success', ?, NULL, 1, ?)
		ON CONFLICT (item_id) DO UPDATE SET
			status = excluded.status,
			content = excluded.content,
			error = NULL,
			attempts = story_contents.attempts + 1,
			extracted_at = excluded.extracted_at
	`, itemID.String(), content, extractedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save story content: %w", err)
	}
	return nil
}

// SaveFailure records a failed extraction attempt for a story
func (r *ContentRepository) SaveFailure(ctx context.Context, itemID uuid.UUID, reason string, attemptedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO story_contents (item_id, status, content, error, attempts, extracted_at)
		VALUES (?, 'failed', NULL, ?, 1, ?)
		ON CONFLICT (item_id) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			attempts = story_contents.attempts + 1,
			extracted_at = excluded.extracted_at
	`, itemID.String(), reason, attemptedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save extraction failure: %w", err)
	}
	return nil
}

// GetContent returns the extraction record of a story, or nil if none exists
func (r *ContentRepository) GetContent(ctx context.Context, itemID uuid.UUID) (*StoryContent, error) {
	var row struct {
		ItemID      uuid.UUID      `db:"item_id"`
		Status      string         `db:"status"`
		Content     sql.NullString `db:"content"`
		Error       sql.NullString `db:"error"`
		Attempts    int            `db:"attempts"`
		ExtractedAt int64          `db:"extracted_at"`
	}
	err := r.db.GetContext(ctx, &row, `
		SELECT item_id, status, content, error, attempts, extracted_at
		FROM story_contents
		WHERE item_id = ?
	`, itemID.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get story content: %w", err)
	}

	return &StoryContent{
		ItemID:      row.ItemID,
		Status:      row.Status,
		Content:     row.Content.String,
		Error:       row.Error.String,
		Attempts:    row.Attempts,
		ExtractedAt: time.Unix(row.ExtractedAt, 0).UTC(),
	}, nil
}
