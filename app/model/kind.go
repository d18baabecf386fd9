package model

import "fmt"

// Kind is the closed set of item shapes mirrored from the upstream feed.
// The store picks an extension table and the projection picks a field set
// by switching on it.
type Kind string

const (
	KindJob        Kind = "job"
	KindStory      Kind = "story"
	KindComment    Kind = "comment"
	KindPoll       Kind = "poll"
	KindPollOption Kind = "pollopt"
)

var Kinds = []Kind{KindJob, KindStory, KindComment, KindPoll, KindPollOption}

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown item type %q", s)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	switch k {
	case KindJob, KindStory, KindComment, KindPoll, KindPollOption:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// HasParent reports whether items of this kind reference a parent item.
func (k Kind) HasParent() bool {
	return k == KindComment || k == KindPollOption
}

// AcceptsParent reports whether an item of kind k may hang below an item
// of kind parent.
func (k Kind) AcceptsParent(parent Kind) bool {
	switch k {
	case KindComment:
		return parent == KindStory || parent == KindComment
	case KindPollOption:
		return parent == KindPoll
	}
	return false
}

// ParentKinds lists the kinds accepted as parent, for error messages.
func (k Kind) ParentKinds() []Kind {
	switch k {
	case KindComment:
		return []Kind{KindStory, KindComment}
	case KindPollOption:
		return []Kind{KindPoll}
	}
	return nil
}
