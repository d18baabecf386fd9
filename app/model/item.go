package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Item is one node of the content tree: the shared base record plus the
// kind-specific Details.
type Item struct {
	ID         uuid.UUID
	UpstreamID *int64 // nil for items created locally
	Kind       Kind
	Author     *string
	Time       *time.Time
	Deleted    bool
	Dead       bool
	Details    Details
}

// Ref returns the reference other items use to point at this one.
func (i Item) Ref() Ref {
	return Ref{ID: i.ID, UpstreamID: i.UpstreamID}
}

// Details is implemented by the five extension records.
type Details interface {
	Kind() Kind
}

type Job struct {
	Text  *string
	Title *string
	URL   *string
}

type Story struct {
	Descendants *int64
	Score       *int64
	Title       *string
	URL         *string
}

type Comment struct {
	Parent *Ref
	Text   *string
}

type Poll struct {
	Descendants *int64
	Score       *int64
	Title       *string
	Text        *string
}

type PollOption struct {
	Parent *Ref
	Score  *int64
}

func (*Job) Kind() Kind        { return KindJob }
func (*Story) Kind() Kind      { return KindStory }
func (*Comment) Kind() Kind    { return KindComment }
func (*Poll) Kind() Kind       { return KindPoll }
func (*PollOption) Kind() Kind { return KindPollOption }

// ParentOf returns the parent reference carried by d, if its kind has one.
func ParentOf(d Details) *Ref {
	switch v := d.(type) {
	case *Comment:
		return v.Parent
	case *PollOption:
		return v.Parent
	}
	return nil
}

// Ref identifies a related item. It resolves to the upstream id when the
// item has one and to the local id otherwise.
type Ref struct {
	ID         uuid.UUID
	UpstreamID *int64
}

// Value is the externally visible identifier: an int64 or a UUID string.
func (r Ref) Value() any {
	if r.UpstreamID != nil {
		return *r.UpstreamID
	}
	return r.ID.String()
}

func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Value())
}

// NewItem is the input for creating base and extension records together.
type NewItem struct {
	UpstreamID *int64
	Author     *string
	Time       *time.Time
	Deleted    bool
	Dead       bool
	Details    Details
}

func (n NewItem) Kind() Kind {
	if n.Details == nil {
		return ""
	}
	return n.Details.Kind()
}

// ListFilter narrows ListItems. Zero values mean no restriction, except
// Limit which falls back to DefaultListLimit.
type ListFilter struct {
	Kind   Kind
	Search string
	Limit  int
	Offset int
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// PageLimit is the number of rows a list returns at most.
func (f ListFilter) PageLimit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return min(f.Limit, MaxListLimit)
}
