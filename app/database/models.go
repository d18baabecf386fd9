package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/quickcheck/app/model"
)

// itemRow is one base record joined with whichever extension table holds
// its kind-specific columns.
type itemRow struct {
	ID               uuid.UUID      `db:"id"`
	UpstreamID       sql.NullInt64  `db:"upstream_id"`
	Type             string         `db:"type"`
	Author           sql.NullString `db:"author"`
	Time             sql.NullInt64  `db:"time"`
	Deleted          bool           `db:"deleted"`
	Dead             bool           `db:"dead"`
	Text             sql.NullString `db:"text"`
	Title            sql.NullString `db:"title"`
	URL              sql.NullString `db:"url"`
	Score            sql.NullInt64  `db:"score"`
	Descendants      sql.NullInt64  `db:"descendants"`
	ParentID         uuid.NullUUID  `db:"parent_id"`
	ParentUpstreamID sql.NullInt64  `db:"parent_upstream_id"`
}

func (r itemRow) toModel() (model.Item, error) {
	kind, err := model.ParseKind(r.Type)
	if err != nil {
		return model.Item{}, fmt.Errorf("item %s: %w", r.ID, err)
	}

	item := model.Item{
		ID:         r.ID,
		UpstreamID: int64Ptr(r.UpstreamID),
		Kind:       kind,
		Author:     stringPtr(r.Author),
		Time:       timePtr(r.Time),
		Deleted:    r.Deleted,
		Dead:       r.Dead,
	}

	switch kind {
	case model.KindJob:
		item.Details = &model.Job{
			Text:  stringPtr(r.Text),
			Title: stringPtr(r.Title),
			URL:   stringPtr(r.URL),
		}
	case model.KindStory:
		item.Details = &model.Story{
			Descendants: int64Ptr(r.Descendants),
			Score:       int64Ptr(r.Score),
			Title:       stringPtr(r.Title),
			URL:         stringPtr(r.URL),
		}
	case model.KindComment:
		item.Details = &model.Comment{
			Parent: r.parentRef(),
			Text:   stringPtr(r.Text),
		}
	case model.KindPoll:
		item.Details = &model.Poll{
			Descendants: int64Ptr(r.Descendants),
			Score:       int64Ptr(r.Score),
			Title:       stringPtr(r.Title),
			Text:        stringPtr(r.Text),
		}
	case model.KindPollOption:
		item.Details = &model.PollOption{
			Parent: r.parentRef(),
			Score:  int64Ptr(r.Score),
		}
	}

	return item, nil
}

func (r itemRow) parentRef() *model.Ref {
	if !r.ParentID.Valid {
		return nil
	}
	return &model.Ref{ID: r.ParentID.UUID, UpstreamID: int64Ptr(r.ParentUpstreamID)}
}

func rowsToModels(rows []itemRow) ([]model.Item, error) {
	items := make([]model.Item, 0, len(rows))
	for _, row := range rows {
		item, err := row.toModel()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

// Query argument helpers: nil pointers become SQL NULL.

func intArg(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func stringArg(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

// storedTime is v as it reads back from the store: whole seconds in UTC.
func storedTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := time.Unix(v.Unix(), 0).UTC()
	return &t
}

func timeArg(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.Unix()
}

func refArg(v *model.Ref) any {
	if v == nil {
		return nil
	}
	return v.ID.String()
}
