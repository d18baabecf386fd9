package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/quickcheck/app/model"
)

// ChildResolver loads the direct children of an item.
type ChildResolver interface {
	ChildrenOf(ctx context.Context, id uuid.UUID) ([]model.Item, error)
}

// Record is the external view of an item. Which of the optional fields
// are rendered depends on Type; see MarshalJSON.
type Record struct {
	ID         uuid.UUID
	UpstreamID *int64
	Type       model.Kind
	Author     *string
	Time       *time.Time
	Deleted    bool
	Dead       bool

	Text        *string
	Title       *string
	URL         *string
	Score       *int64
	Descendants *int64
	Parent      *model.Ref
	Kids        []model.Ref
	Parts       []model.Ref
}

// Ref is how other records refer to this one.
func (r Record) Ref() model.Ref {
	return model.Ref{ID: r.ID, UpstreamID: r.UpstreamID}
}

// Project builds the record for item, loading kids or parts through
// resolver for the kinds that have them.
func Project(ctx context.Context, item model.Item, resolver ChildResolver) (Record, error) {
	r := Record{
		ID:         item.ID,
		UpstreamID: item.UpstreamID,
		Type:       item.Kind,
		Author:     item.Author,
		Time:       item.Time,
		Deleted:    item.Deleted,
		Dead:       item.Dead,
	}

	var withChildren bool
	switch d := item.Details.(type) {
	case *model.Job:
		r.Text, r.Title, r.URL = d.Text, d.Title, d.URL
	case *model.Story:
		r.Title, r.URL, r.Score, r.Descendants = d.Title, d.URL, d.Score, d.Descendants
		withChildren = true
	case *model.Comment:
		r.Text, r.Parent = d.Text, d.Parent
		withChildren = true
	case *model.Poll:
		r.Title, r.Text, r.Score, r.Descendants = d.Title, d.Text, d.Score, d.Descendants
		withChildren = true
	case *model.PollOption:
		r.Score, r.Parent = d.Score, d.Parent
	default:
		return Record{}, fmt.Errorf("item %s has unsupported details %T", item.ID, item.Details)
	}

	if !withChildren {
		return r, nil
	}

	children, err := resolver.ChildrenOf(ctx, item.ID)
	if err != nil {
		return Record{}, fmt.Errorf("failed to resolve children of %s: %w", item.ID, err)
	}

	refs := make([]model.Ref, 0, len(children))
	for _, child := range children {
		refs = append(refs, child.Ref())
	}
	if item.Kind == model.KindPoll {
		r.Parts = refs
	} else {
		r.Kids = refs
	}
	return r, nil
}

// ProjectAll projects items in order.
func ProjectAll(ctx context.Context, items []model.Item, resolver ChildResolver) ([]Record, error) {
	records := make([]Record, 0, len(items))
	for _, item := range items {
		r, err := Project(ctx, item, resolver)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// Fields returns the record as a map holding the base fields and the
// fields of its type.
func (r Record) Fields() map[string]any {
	fields := map[string]any{
		"id":          r.ID.String(),
		"upstream_id": r.UpstreamID,
		"type":        r.Type,
		"author":      r.Author,
		"time":        formatTime(r.Time),
		"deleted":     r.Deleted,
		"dead":        r.Dead,
	}

	switch r.Type {
	case model.KindJob:
		fields["text"] = r.Text
		fields["title"] = r.Title
		fields["url"] = r.URL
	case model.KindStory:
		fields["title"] = r.Title
		fields["url"] = r.URL
		fields["score"] = r.Score
		fields["descendants"] = r.Descendants
		fields["kids"] = refs(r.Kids)
	case model.KindComment:
		fields["text"] = r.Text
		fields["parent"] = r.Parent
		fields["kids"] = refs(r.Kids)
	case model.KindPoll:
		fields["title"] = r.Title
		fields["text"] = r.Text
		fields["score"] = r.Score
		fields["descendants"] = r.Descendants
		fields["parts"] = refs(r.Parts)
	case model.KindPollOption:
		fields["score"] = r.Score
		fields["parent"] = r.Parent
	}
	return fields
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func refs(r []model.Ref) []model.Ref {
	if r == nil {
		return []model.Ref{}
	}
	return r
}
