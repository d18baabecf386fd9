package items

type StoryInput struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type JobInput struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

type CommentInput struct {
	Parent Key    `json:"parent"`
	Text   string `json:"text"`
}

type PollInput struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type PollOptionInput struct {
	Parent Key `json:"parent"`
}

// UpdateInput edits a local item. Nil fields are left unchanged; an empty
// url removes the link.
type UpdateInput struct {
	Title *string `json:"title"`
	Text  *string `json:"text"`
	URL   *string `json:"url"`
}
