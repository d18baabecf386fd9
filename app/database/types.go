package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/quickcheck/app/model"
)

type ItemStats struct {
	Total          int
	Synced         int // items carrying an upstream id
	Local          int
	ByType         map[model.Kind]int
	LastUpstreamID *int64
}

const (
	ExtractionStatusSuccess = "success"
	ExtractionStatusFailed  = "failed"
)

type StoryForExtraction struct {
	ID  uuid.UUID `db:"id"`
	URL string    `db:"url"`
}

type StoryContent struct {
	ItemID      uuid.UUID
	Status      string
	Content     string
	Error       string
	Attempts    int
	ExtractedAt time.Time
}
