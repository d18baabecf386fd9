package api

import (
	"context"

	"github.com/lysyi3m/quickcheck/app/database"
	"github.com/lysyi3m/quickcheck/app/feed"
	"github.com/lysyi3m/quickcheck/app/ingest"
	"github.com/lysyi3m/quickcheck/app/items"
	"github.com/lysyi3m/quickcheck/app/model"
	"github.com/lysyi3m/quickcheck/app/projection"
)

type GeneratorInterface interface {
	Run(kind model.Kind, records []projection.Record) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type ItemService interface {
	ListItems(ctx context.Context, filter model.ListFilter) ([]projection.Record, error)
	GetItem(ctx context.Context, key string) (projection.Record, error)
	GetContent(ctx context.Context, key string) (*database.StoryContent, error)
	CreateStory(ctx context.Context, in items.StoryInput, author string) (projection.Record, error)
	CreateJob(ctx context.Context, in items.JobInput, author string) (projection.Record, error)
	CreateComment(ctx context.Context, in items.CommentInput, author string) (projection.Record, error)
	CreatePoll(ctx context.Context, in items.PollInput, author string) (projection.Record, error)
	CreatePollOption(ctx context.Context, in items.PollOptionInput, author string) (projection.Record, error)
	UpdateItem(ctx context.Context, kind model.Kind, key string, in items.UpdateInput, author string) (projection.Record, error)
	Stats(ctx context.Context) (*database.ItemStats, error)
	RunSync(ctx context.Context) (ingest.Result, error)
}

var _ ItemService = (*items.Service)(nil)

type Handler struct {
	service   ItemService
	generator GeneratorInterface
	version   string
}

// feedKinds are the item types served as RSS.
var feedKinds = map[model.Kind]bool{
	model.KindStory: true,
	model.KindJob:   true,
	model.KindPoll:  true,
}

const feedSize = 30
