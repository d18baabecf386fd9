package items

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/quickcheck/app/content"
	"github.com/lysyi3m/quickcheck/app/database"
	"github.com/lysyi3m/quickcheck/app/ingest"
	"github.com/lysyi3m/quickcheck/app/model"
	"github.com/lysyi3m/quickcheck/app/projection"
)

type Repository interface {
	projection.ChildResolver
	CreateItem(ctx context.Context, item model.NewItem) (*model.Item, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, details model.Details) (*model.Item, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Item, error)
	FindByUpstreamID(ctx context.Context, upstreamID int64) (*model.Item, error)
	ListItems(ctx context.Context, filter model.ListFilter) ([]model.Item, error)
	GetItemStats(ctx context.Context) (*database.ItemStats, error)
}

type ContentStore interface {
	GetContent(ctx context.Context, itemID uuid.UUID) (*database.StoryContent, error)
}

type Syncer interface {
	Run(ctx context.Context) (ingest.Result, error)
}

// Service is the entry point for reading projected items, creating local
// items and triggering a sync.
type Service struct {
	repo     Repository
	contents ContentStore
	syncer   Syncer
	text     *content.TextRenderer
	now      func() time.Time
}

func NewService(repo Repository, contents ContentStore, syncer Syncer) *Service {
	return &Service{
		repo:     repo,
		contents: contents,
		syncer:   syncer,
		text:     content.NewTextRenderer(),
		now:      time.Now,
	}
}

func (s *Service) ListItems(ctx context.Context, filter model.ListFilter) ([]projection.Record, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, &model.ValidationError{Field: "type", Message: fmt.Sprintf("unknown item type %q", filter.Kind)}
	}

	list, err := s.repo.ListItems(ctx, filter)
	if err != nil {
		return nil, err
	}
	return projection.ProjectAll(ctx, list, s.repo)
}

// GetItem returns the item addressed by a local UUID or an upstream id.
func (s *Service) GetItem(ctx context.Context, key string) (projection.Record, error) {
	item, err := s.findItem(ctx, Key(key))
	if err != nil {
		return projection.Record{}, err
	}
	return projection.Project(ctx, *item, s.repo)
}

func (s *Service) findItem(ctx context.Context, key Key) (*model.Item, error) {
	id, upstreamID, isUUID, ok := key.parse()
	if !ok {
		return nil, model.ErrNotFound
	}

	var (
		item *model.Item
		err  error
	)
	if isUUID {
		item, err = s.repo.FindByID(ctx, id)
	} else {
		item, err = s.repo.FindByUpstreamID(ctx, upstreamID)
	}
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, model.ErrNotFound
	}
	return item, nil
}

func (s *Service) CreateStory(ctx context.Context, in StoryInput, author string) (projection.Record, error) {
	title, err := s.requiredTitle(in.Title)
	if err != nil {
		return projection.Record{}, err
	}
	url, err := optionalURL(in.URL)
	if err != nil {
		return projection.Record{}, err
	}

	return s.create(ctx, author, &model.Story{Title: title, URL: url})
}

func (s *Service) CreateJob(ctx context.Context, in JobInput, author string) (projection.Record, error) {
	title, err := s.requiredTitle(in.Title)
	if err != nil {
		return projection.Record{}, err
	}
	text, err := s.requiredText(in.Text)
	if err != nil {
		return projection.Record{}, err
	}
	url, err := optionalURL(in.URL)
	if err != nil {
		return projection.Record{}, err
	}

	return s.create(ctx, author, &model.Job{Title: title, Text: text, URL: url})
}

func (s *Service) CreateComment(ctx context.Context, in CommentInput, author string) (projection.Record, error) {
	parent, err := s.requiredParent(ctx, in.Parent)
	if err != nil {
		return projection.Record{}, err
	}
	text, err := s.requiredText(in.Text)
	if err != nil {
		return projection.Record{}, err
	}

	return s.create(ctx, author, &model.Comment{Parent: parent, Text: text})
}

func (s *Service) CreatePoll(ctx context.Context, in PollInput, author string) (projection.Record, error) {
	title, err := s.requiredTitle(in.Title)
	if err != nil {
		return projection.Record{}, err
	}
	text, err := s.requiredText(in.Text)
	if err != nil {
		return projection.Record{}, err
	}

	return s.create(ctx, author, &model.Poll{Title: title, Text: text})
}

func (s *Service) CreatePollOption(ctx context.Context, in PollOptionInput, author string) (projection.Record, error) {
	parent, err := s.requiredParent(ctx, in.Parent)
	if err != nil {
		return projection.Record{}, err
	}

	return s.create(ctx, author, &model.PollOption{Parent: parent})
}

func (s *Service) create(ctx context.Context, author string, details model.Details) (projection.Record, error) {
	now := s.now().UTC().Truncate(time.Second)
	item := model.NewItem{
		Time:    &now,
		Details: details,
	}
	if author != "" {
		item.Author = &author
	}

	created, err := s.repo.CreateItem(ctx, item)
	if err != nil {
		return projection.Record{}, err
	}
	return projection.Project(ctx, *created, s.repo)
}

// UpdateItem edits the title, text or url of a local item of the given
// kind. Only its author may do so; synced items are read-only.
func (s *Service) UpdateItem(ctx context.Context, kind model.Kind, key string, in UpdateInput, author string) (projection.Record, error) {
	item, err := s.findItem(ctx, Key(key))
	if err != nil {
		return projection.Record{}, err
	}
	if item.Kind != kind {
		return projection.Record{}, model.ErrNotFound
	}
	if item.UpstreamID != nil {
		return projection.Record{}, fmt.Errorf("%w: synced items are read-only", model.ErrForbidden)
	}
	if author == "" || item.Author == nil || *item.Author != author {
		return projection.Record{}, fmt.Errorf("%w: you are not the author of this item", model.ErrForbidden)
	}

	details, err := s.applyUpdate(item.Details, in)
	if err != nil {
		return projection.Record{}, err
	}

	updated, err := s.repo.UpdateDetails(ctx, item.ID, details)
	if err != nil {
		return projection.Record{}, err
	}
	return projection.Project(ctx, *updated, s.repo)
}

func (s *Service) applyUpdate(details model.Details, in UpdateInput) (model.Details, error) {
	var (
		title, text, url **string
		err              error
	)

	switch d := details.(type) {
	case *model.Job:
		job := *d
		details, title, text, url = &job, &job.Title, &job.Text, &job.URL
	case *model.Story:
		story := *d
		details, title, url = &story, &story.Title, &story.URL
	case *model.Comment:
		comment := *d
		details, text = &comment, &comment.Text
	case *model.Poll:
		poll := *d
		details, title, text = &poll, &poll.Title, &poll.Text
	case *model.PollOption:
		option := *d
		details = &option
	default:
		return nil, fmt.Errorf("unsupported item details %T", details)
	}

	kind := details.Kind()
	if in.Title != nil {
		if title == nil {
			return nil, notEditable("title", kind)
		}
		if *title, err = s.requiredTitle(*in.Title); err != nil {
			return nil, err
		}
	}
	if in.Text != nil {
		if text == nil {
			return nil, notEditable("text", kind)
		}
		if *text, err = s.requiredText(*in.Text); err != nil {
			return nil, err
		}
	}
	if in.URL != nil {
		if url == nil {
			return nil, notEditable("url", kind)
		}
		if *url, err = optionalURL(*in.URL); err != nil {
			return nil, err
		}
	}
	return details, nil
}

func notEditable(field string, kind model.Kind) *model.ValidationError {
	return &model.ValidationError{Field: field, Message: fmt.Sprintf("a %s has no %s", kind, field)}
}

func (s *Service) requiredTitle(raw string) (*string, error) {
	title := s.text.Title(raw)
	if title == "" {
		return nil, &model.ValidationError{Field: "title", Message: "this field is required"}
	}
	return &title, nil
}

func (s *Service) requiredText(raw string) (*string, error) {
	text := s.text.Text(raw)
	if text == "" {
		return nil, &model.ValidationError{Field: "text", Message: "this field is required"}
	}
	return &text, nil
}

func optionalURL(raw string) (*string, error) {
	if raw == "" {
		return nil, nil
	}
	url, err := content.ValidateURL(raw)
	if err != nil {
		return nil, &model.ValidationError{Field: "url", Message: err.Error()}
	}
	return &url, nil
}

func (s *Service) requiredParent(ctx context.Context, key Key) (*model.Ref, error) {
	if key == "" {
		return nil, &model.ValidationError{Field: "parent", Message: "this field is required"}
	}

	parent, err := s.findItem(ctx, key)
	if errors.Is(err, model.ErrNotFound) {
		return nil, &model.ValidationError{Field: "parent", Message: "parent item does not exist"}
	}
	if err != nil {
		return nil, err
	}

	ref := parent.Ref()
	return &ref, nil
}

// GetContent returns the article extracted for a story.
func (s *Service) GetContent(ctx context.Context, key string) (*database.StoryContent, error) {
	item, err := s.findItem(ctx, Key(key))
	if err != nil {
		return nil, err
	}
	if item.Kind != model.KindStory {
		return nil, model.ErrNotFound
	}

	c, err := s.contents.GetContent(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, model.ErrNotFound
	}
	return c, nil
}

func (s *Service) Stats(ctx context.Context) (*database.ItemStats, error) {
	return s.repo.GetItemStats(ctx)
}

func (s *Service) RunSync(ctx context.Context) (ingest.Result, error) {
	return s.syncer.Run(ctx)
}
