package projection

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/quickcheck/app/model"
)

type stubResolver map[uuid.UUID][]model.Item

func (s stubResolver) ChildrenOf(_ context.Context, id uuid.UUID) ([]model.Item, error) {
	return s[id], nil
}

type failingResolver struct{}

func (failingResolver) ChildrenOf(context.Context, uuid.UUID) ([]model.Item, error) {
	return nil, errors.New("database is locked")
}

func ptr[T any](v T) *T {
	return &v
}

func decode(t *testing.T, r Record) map[string]any {
	t.Helper()

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	return fields
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestProjectFieldSets(t *testing.T) {
	base := []string{"author", "dead", "deleted", "id", "time", "type", "upstream_id"}
	withBase := func(extra ...string) []string {
		all := append(append([]string{}, base...), extra...)
		sort.Strings(all)
		return all
	}

	tests := []struct {
		name    string
		details model.Details
		want    []string
	}{
		{"job", &model.Job{Title: ptr("Hiring")}, withBase("text", "title", "url")},
		{"story", &model.Story{Title: ptr("Show HN")}, withBase("title", "url", "score", "descendants", "kids")},
		{"comment", &model.Comment{Text: ptr("hi")}, withBase("text", "parent", "kids")},
		{"poll", &model.Poll{Title: ptr("Vote")}, withBase("title", "text", "score", "descendants", "parts")},
		{"pollopt", &model.PollOption{Score: ptr(int64(1))}, withBase("score", "parent")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := model.Item{ID: uuid.New(), Kind: tt.details.Kind(), Details: tt.details}

			record, err := Project(context.Background(), item, stubResolver{})
			if err != nil {
				t.Fatalf("Project failed: %v", err)
			}

			got := keys(decode(t, record))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("fields = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProjectKidsResolveToUpstreamOrLocalID(t *testing.T) {
	story := model.Item{ID: uuid.New(), Kind: model.KindStory, Details: &model.Story{Title: ptr("local story")}}
	synced := model.Item{ID: uuid.New(), UpstreamID: ptr(int64(77)), Kind: model.KindComment, Details: &model.Comment{}}
	local := model.Item{ID: uuid.New(), Kind: model.KindComment, Details: &model.Comment{}}

	record, err := Project(context.Background(), story, stubResolver{story.ID: {synced, local}})
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}

	fields := decode(t, record)
	want := []any{float64(77), local.ID.String()}
	if !reflect.DeepEqual(fields["kids"], want) {
		t.Errorf("kids = %v, want %v", fields["kids"], want)
	}
	if fields["upstream_id"] != nil {
		t.Errorf("upstream_id = %v, want null", fields["upstream_id"])
	}
}

func TestProjectEmptyChildrenAreArrays(t *testing.T) {
	story := model.Item{ID: uuid.New(), Kind: model.KindStory, Details: &model.Story{}}
	poll := model.Item{ID: uuid.New(), Kind: model.KindPoll, Details: &model.Poll{}}

	for _, item := range []model.Item{story, poll} {
		record, err := Project(context.Background(), item, stubResolver{})
		if err != nil {
			t.Fatalf("Project failed: %v", err)
		}

		data, _ := json.Marshal(record)
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}

		key := "kids"
		if item.Kind == model.KindPoll {
			key = "parts"
		}
		if string(fields[key]) != "[]" {
			t.Errorf("%s %s = %s, want []", item.Kind, key, fields[key])
		}
	}
}

func TestProjectParent(t *testing.T) {
	parentID := uuid.New()
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	withUpstream := model.Item{
		ID:      uuid.New(),
		Kind:    model.KindComment,
		Author:  ptr("dang"),
		Time:    &ts,
		Details: &model.Comment{Parent: &model.Ref{ID: parentID, UpstreamID: ptr(int64(8))}, Text: ptr("hi")},
	}
	orphan := model.Item{ID: uuid.New(), Kind: model.KindPollOption, Details: &model.PollOption{}}
	local := model.Item{ID: uuid.New(), Kind: model.KindPollOption, Details: &model.PollOption{Parent: &model.Ref{ID: parentID}}}

	fields := decode(t, mustProject(t, withUpstream))
	if fields["parent"] != float64(8) {
		t.Errorf("parent = %v, want 8", fields["parent"])
	}
	if fields["time"] != "2024-03-01T12:00:00Z" {
		t.Errorf("time = %v", fields["time"])
	}
	if fields["author"] != "dang" {
		t.Errorf("author = %v", fields["author"])
	}

	fields = decode(t, mustProject(t, orphan))
	if v, ok := fields["parent"]; !ok || v != nil {
		t.Errorf("parent = %v (present %v), want null", v, ok)
	}

	fields = decode(t, mustProject(t, local))
	if fields["parent"] != parentID.String() {
		t.Errorf("parent = %v, want %s", fields["parent"], parentID)
	}
}

func TestProjectResolverError(t *testing.T) {
	story := model.Item{ID: uuid.New(), Kind: model.KindStory, Details: &model.Story{}}
	if _, err := Project(context.Background(), story, failingResolver{}); err == nil {
		t.Error("expected resolver error")
	}

	job := model.Item{ID: uuid.New(), Kind: model.KindJob, Details: &model.Job{}}
	if _, err := Project(context.Background(), job, failingResolver{}); err != nil {
		t.Errorf("job projection must not resolve children: %v", err)
	}
}

func mustProject(t *testing.T, item model.Item) Record {
	t.Helper()
	r, err := Project(context.Background(), item, stubResolver{})
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	return r
}
