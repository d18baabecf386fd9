package upstream

import (
	"context"
	"fmt"
)

// Client reads items from the upstream feed.
type Client interface {
	FetchMaxID(ctx context.Context) (int64, error)
	// FetchItem returns nil without an error when the upstream has no
	// item under id.
	FetchItem(ctx context.Context, id int64) (*RawItem, error)
}

// RawItem is one upstream item as served by the API. Everything except
// ID and Type is optional.
type RawItem struct {
	ID          int64   `json:"id" yaml:"id"`
	Type        string  `json:"type" yaml:"type"`
	By          *string `json:"by,omitempty" yaml:"by,omitempty"`
	Time        *int64  `json:"time,omitempty" yaml:"time,omitempty"`
	Deleted     bool    `json:"deleted,omitempty" yaml:"deleted,omitempty"`
	Dead        bool    `json:"dead,omitempty" yaml:"dead,omitempty"`
	Text        *string `json:"text,omitempty" yaml:"text,omitempty"`
	Title       *string `json:"title,omitempty" yaml:"title,omitempty"`
	URL         *string `json:"url,omitempty" yaml:"url,omitempty"`
	Score       *int64  `json:"score,omitempty" yaml:"score,omitempty"`
	Descendants *int64  `json:"descendants,omitempty" yaml:"descendants,omitempty"`
	Parent      *int64  `json:"parent,omitempty" yaml:"parent,omitempty"`
	Poll        *int64  `json:"poll,omitempty" yaml:"poll,omitempty"`
	Kids        []int64 `json:"kids,omitempty" yaml:"kids,omitempty"`
	Parts       []int64 `json:"parts,omitempty" yaml:"parts,omitempty"`
}

// ParentID returns the upstream id of the item's parent. Poll options
// usually carry it in the poll field only.
func (r *RawItem) ParentID() *int64 {
	if r.Parent != nil {
		return r.Parent
	}
	if r.Type == "pollopt" {
		return r.Poll
	}
	return nil
}

// validate checks the fields every payload must carry. An item served
// under another id would move the resumption point.
func (r *RawItem) validate(requested int64) error {
	if r.ID != requested {
		return fmt.Errorf("payload id %d does not match requested id %d", r.ID, requested)
	}
	if r.Type == "" {
		return fmt.Errorf("payload has no type")
	}
	return nil
}

// FetchError reports a failed upstream request. ID is zero for the max id
// request.
type FetchError struct {
	ID  int64
	Err error
}

func (e *FetchError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("failed to fetch max item id: %v", e.Err)
	}
	return fmt.Sprintf("failed to fetch item %d: %v", e.ID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
