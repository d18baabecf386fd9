package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/quickcheck/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrationsIsIdempotent(t *testing.T) {
	db := setupTestDB(t)

	version, dirty, err := RunMigrations(db)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)
}

func TestCreateItemAllKinds(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(setupTestDB(t))

	job, err := repo.CreateItem(ctx, model.NewItem{
		UpstreamID: ptr(int64(1)),
		Details:    &model.Job{Title: ptr("Hiring"), Text: ptr("Go engineers"), URL: ptr("https://example.com/jobs")},
	})
	require.NoError(t, err)
	require.Equal(t, model.KindJob, job.Kind)
	jobDetails := job.Details.(*model.Job)
	assert.Equal(t, "Hiring", *jobDetails.Title)
	assert.Equal(t, "Go engineers", *jobDetails.Text)
	assert.Equal(t, "https://example.com/jobs", *jobDetails.URL)

	s, err := repo.CreateItem(ctx, model.NewItem{
		UpstreamID: ptr(int64(2)),
		Author:     ptr("pg"),
		Time:       at(1700000000),
		Dead:       true,
		Details:    &model.Story{Title: ptr("Show HN"), URL: ptr("https://example.com"), Score: ptr(int64(42)), Descendants: ptr(int64(3))},
	})
	require.NoError(t, err)
	assert.Equal(t, "pg", *s.Author)
	assert.Equal(t, int64(1700000000), s.Time.Unix())
	assert.True(t, s.Dead)
	assert.False(t, s.Deleted)
	storyDetails := s.Details.(*model.Story)
	assert.Equal(t, int64(42), *storyDetails.Score)
	assert.Equal(t, int64(3), *storyDetails.Descendants)

	c, err := repo.CreateItem(ctx, comment(ptr(int64(3)), s, 1700000100))
	require.NoError(t, err)
	parent := c.Details.(*model.Comment).Parent
	require.NotNil(t, parent)
	assert.Equal(t, s.ID, parent.ID)
	assert.Equal(t, int64(2), *parent.UpstreamID)

	poll, err := repo.CreateItem(ctx, model.NewItem{
		UpstreamID: ptr(int64(4)),
		Details:    &model.Poll{Title: ptr("Tabs or spaces?"), Text: ptr("Vote"), Score: ptr(int64(7))},
	})
	require.NoError(t, err)
	assert.Equal(t, "Vote", *poll.Details.(*model.Poll).Text)

	opt, err := repo.CreateItem(ctx, model.NewItem{
		UpstreamID: ptr(int64(5)),
		Details:    &model.PollOption{Parent: ptr(poll.Ref()), Score: ptr(int64(1))},
	})
	require.NoError(t, err)
	optDetails := opt.Details.(*model.PollOption)
	assert.Equal(t, poll.ID, optDetails.Parent.ID)
	assert.Equal(t, int64(1), *optDetails.Score)
}

func TestCreateItemReturnsStoredRecord(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(setupTestDB(t))

	parent, err := repo.CreateItem(ctx, story(ptr(int64(10)), "Parent", 1700000000))
	require.NoError(t, err)

	posted := time.Date(2024, 3, 1, 12, 30, 15, 987654321, time.FixedZone("CET", 3600))
	created, err := repo.CreateItem(ctx, model.NewItem{
		Author:  ptr("alice"),
		Time:    &posted,
		Details: &model.Comment{Parent: &model.Ref{ID: parent.ID}, Text: ptr("reply")},
	})
	require.NoError(t, err)

	stored, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, stored, created)
	assert.Equal(t, int64(10), *created.Details.(*model.Comment).Parent.UpstreamID)
}

func TestCreateItemWithoutParent(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(setupTestDB(t))

	c, err := repo.CreateItem(ctx, comment(ptr(int64(9)), nil, 100))
	require.NoError(t, err)
	assert.Nil(t, c.Details.(*model.Comment).Parent)
}

func TestCreateItemDuplicateUpstreamID(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewItemRepository(db)

	_, err := repo.CreateItem(ctx, story(ptr(int64(42)), "first", 100))
	require.NoError(t, err)

	_, err = repo.CreateItem(ctx, model.NewItem{
		UpstreamID: ptr(int64(42)),
		Details:    &model.Job{Title: ptr("second")},
	})
	var conflict *model.ConflictError
	require.True(t, errors.As(err, &conflict), "expected ConflictError, got %v", err)
	assert.Equal(t, int64(42), conflict.UpstreamID)

	var jobs int
	require.NoError(t, db.Get(&jobs, `SELECT COUNT(*) FROM jobs`))
	assert.Zero(t, jobs, "conflicting create must not leave an extension record")

	var items int
	require.NoError(t, db.Get(&items, `SELECT COUNT(*) FROM items`))
	assert.Equal(t, 1, items)
}

func TestCreateItemConcurrentSameUpstreamID(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewItemRepository(db)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.CreateItem(ctx, story(ptr(int64(42)), "race", 100))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var conflict *model.ConflictError
		assert.True(t, errors.As(err, &conflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM items WHERE upstream_id = 42`))
	assert.Equal(t, 1, count)
}

func TestCreateItemParentValidation(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewItemRepository(db)

	s, err := repo.CreateItem(ctx, story(nil, "story", 100))
	require.NoError(t, err)
	poll, err := repo.CreateItem(ctx, model.NewItem{Details: &model.Poll{Title: ptr("poll")}})
	require.NoError(t, err)
	opt, err := repo.CreateItem(ctx, model.NewItem{Details: &model.PollOption{Parent: ptr(poll.Ref())}})
	require.NoError(t, err)
	job, err := repo.CreateItem(ctx, model.NewItem{Details: &model.Job{Title: ptr("job")}})
	require.NoError(t, err)

	tests := []struct {
		name    string
		details model.Details
	}{
		{"comment below poll option", &model.Comment{Parent: ptr(opt.Ref()), Text: ptr("x")}},
		{"comment below poll", &model.Comment{Parent: ptr(poll.Ref()), Text: ptr("x")}},
		{"comment below job", &model.Comment{Parent: ptr(job.Ref()), Text: ptr("x")}},
		{"poll option below story", &model.PollOption{Parent: ptr(s.Ref())}},
		{"poll option below poll option", &model.PollOption{Parent: ptr(opt.Ref())}},
		{"comment below missing item", &model.Comment{Parent: &model.Ref{ID: uuid.New()}, Text: ptr("x")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var before int
			require.NoError(t, db.Get(&before, `SELECT COUNT(*) FROM items`))

			_, err := repo.CreateItem(ctx, model.NewItem{Details: tt.details})
			var validationErr *model.ValidationError
			require.True(t, errors.As(err, &validationErr), "expected ValidationError, got %v", err)
			assert.Equal(t, "parent", validationErr.Field)

			var after int
			require.NoError(t, db.Get(&after, `SELECT COUNT(*) FROM items`))
			assert.Equal(t, before, after)
		})
	}
}

func TestItemTypeIsImmutable(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewItemRepository(db)

	s, err := repo.CreateItem(ctx, story(ptr(int64(1)), "story", 100))
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE items SET type = 'job' WHERE id = ?`, s.ID.String())
	assert.Error(t, err)
	_, err = db.Exec(`UPDATE items SET upstream_id = 2 WHERE id = ?`, s.ID.String())
	assert.Error(t, err)
	_, err = db.Exec(`UPDATE items SET dead = 1 WHERE id = ?`, s.ID.String())
	assert.NoError(t, err)
}

func TestUpdateDetails(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(setupTestDB(t))

	s, err := repo.CreateItem(ctx, story(nil, "Draft", 100))
	require.NoError(t, err)
	c, err := repo.CreateItem(ctx, comment(nil, s, 200))
	require.NoError(t, err)

	updated, err := repo.UpdateDetails(ctx, s.ID, &model.Story{Title: ptr("Final"), URL: ptr("https://example.com"), Score: ptr(int64(10))})
	require.NoError(t, err)
	details := updated.Details.(*model.Story)
	assert.Equal(t, "Final", *details.Title)
	assert.Equal(t, "https://example.com", *details.URL)
	assert.Equal(t, s.Time, updated.Time)
	assert.Equal(t, s.Author, updated.Author)

	updatedComment, err := repo.UpdateDetails(ctx, c.ID, &model.Comment{Text: ptr("edited")})
	require.NoError(t, err)
	commentDetails := updatedComment.Details.(*model.Comment)
	assert.Equal(t, "edited", *commentDetails.Text)
	require.NotNil(t, commentDetails.Parent, "parent is kept")
	assert.Equal(t, s.ID, commentDetails.Parent.ID)

	_, err = repo.UpdateDetails(ctx, s.ID, &model.Job{Title: ptr("job")})
	assert.Error(t, err)

	stored, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", *stored.Details.(*model.Story).Title)

	_, err = repo.UpdateDetails(ctx, uuid.New(), &model.Story{Title: ptr("ghost")})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestFindByUpstreamID(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(setupTestDB(t))

	missing, err := repo.FindByUpstreamID(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, missing)

	created, err := repo.CreateItem(ctx, story(ptr(int64(7)), "seven", 100))
	require.NoError(t, err)

	found, err := repo.FindByUpstreamID(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "seven", *byID.Details.(*model.Story).Title)

	unknown, err := repo.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, unknown)
}

func TestMaxUpstreamID(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(setupTestDB(t))

	maxID, err := repo.MaxUpstreamID(ctx)
	require.NoError(t, err)
	assert.Nil(t, maxID)

	_, err = repo.CreateItem(ctx, story(nil, "local", 100))
	require.NoError(t, err)
	maxID, err = repo.MaxUpstreamID(ctx)
	require.NoError(t, err)
	assert.Nil(t, maxID, "local items do not count towards the resumption point")

	for _, id := range []int64{12, 40, 31} {
		_, err := repo.CreateItem(ctx, story(ptr(id), "synced", 100))
		require.NoError(t, err)
	}
	maxID, err = repo.MaxUpstreamID(ctx)
	require.NoError(t, err)
	require.NotNil(t, maxID)
	assert.Equal(t, int64(40), *maxID)
}

func TestChildrenOf(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(setupTestDB(t))

	s, err := repo.CreateItem(ctx, story(nil, "story", 100))
	require.NoError(t, err)
	older, err := repo.CreateItem(ctx, comment(nil, s, 200))
	require.NoError(t, err)
	newer, err := repo.CreateItem(ctx, comment(ptr(int64(77)), s, 300))
	require.NoError(t, err)
	reply, err := repo.CreateItem(ctx, comment(nil, newer, 400))
	require.NoError(t, err)

	kids, err := repo.ChildrenOf(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, kids, 2)
	assert.Equal(t, newer.ID, kids[0].ID)
	assert.Equal(t, older.ID, kids[1].ID)

	replies, err := repo.ChildrenOf(ctx, newer.ID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, reply.ID, replies[0].ID)

	poll, err := repo.CreateItem(ctx, model.NewItem{Details: &model.Poll{Title: ptr("poll")}})
	require.NoError(t, err)
	opt, err := repo.CreateItem(ctx, model.NewItem{Details: &model.PollOption{Parent: ptr(poll.Ref())}})
	require.NoError(t, err)

	parts, err := repo.ChildrenOf(ctx, poll.ID)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, opt.ID, parts[0].ID)

	none, err := repo.ChildrenOf(ctx, reply.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListItems(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(setupTestDB(t))

	_, err := repo.CreateItem(ctx, story(ptr(int64(1)), "Go 1.24 released", 100))
	require.NoError(t, err)
	_, err = repo.CreateItem(ctx, story(ptr(int64(2)), "Rust in the kernel", 300))
	require.NoError(t, err)
	_, err = repo.CreateItem(ctx, model.NewItem{
		UpstreamID: ptr(int64(3)),
		Time:       at(200),
		Details:    &model.Job{Title: ptr("Hiring"), Text: ptr("We write Go")},
	})
	require.NoError(t, err)
	_, err = repo.CreateItem(ctx, model.NewItem{UpstreamID: ptr(int64(4)), Details: &model.Job{Title: ptr("No time")}})
	require.NoError(t, err)

	all, err := repo.ListItems(ctx, model.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, int64(2), *all[0].UpstreamID)
	assert.Equal(t, int64(3), *all[1].UpstreamID)
	assert.Equal(t, int64(1), *all[2].UpstreamID)
	assert.Equal(t, int64(4), *all[3].UpstreamID, "items without time sort last")

	stories, err := repo.ListItems(ctx, model.ListFilter{Kind: model.KindStory})
	require.NoError(t, err)
	assert.Len(t, stories, 2)

	goItems, err := repo.ListItems(ctx, model.ListFilter{Search: "go"})
	require.NoError(t, err)
	assert.Len(t, goItems, 2, "matches story title and job text")

	paged, err := repo.ListItems(ctx, model.ListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, int64(3), *paged[0].UpstreamID)

	literal, err := repo.ListItems(ctx, model.ListFilter{Search: "%"})
	require.NoError(t, err)
	assert.Empty(t, literal)
}

func TestGetItemStats(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository(setupTestDB(t))

	s, err := repo.CreateItem(ctx, story(ptr(int64(5)), "synced", 100))
	require.NoError(t, err)
	_, err = repo.CreateItem(ctx, comment(nil, s, 200))
	require.NoError(t, err)

	stats, err := repo.GetItemStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Synced)
	assert.Equal(t, 1, stats.Local)
	assert.Equal(t, 1, stats.ByType[model.KindStory])
	assert.Equal(t, 1, stats.ByType[model.KindComment])
	assert.Equal(t, 0, stats.ByType[model.KindPoll])
	require.NotNil(t, stats.LastUpstreamID)
	assert.Equal(t, int64(5), *stats.LastUpstreamID)
}
