package feed

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/lysyi3m/quickcheck/app/model"
	"github.com/lysyi3m/quickcheck/app/projection"
)

// Generator renders lists of projected items as RSS 2.0.
type Generator struct {
	baseURL string
	version string
}

func NewGenerator(baseURL, version string) *Generator {
	return &Generator{
		baseURL: strings.TrimRight(baseURL, "/"),
		version: version,
	}
}

func (g *Generator) Run(kind model.Kind, records []projection.Record) (string, error) {
	feed := &feeds.Feed{
		Title:       fmt.Sprintf("quickcheck: latest %s items", kind),
		Link:        &feeds.Link{Href: g.selfLink(kind)},
		Description: fmt.Sprintf("Most recent %s items mirrored by quickcheck %s", kind, g.version),
		Created:     time.Now().UTC(),
	}

	if len(records) > 0 && records[0].Time != nil {
		feed.Created = *records[0].Time
	}

	for _, r := range records {
		feed.Items = append(feed.Items, g.item(r))
	}

	rss, err := feed.ToRss()
	if err != nil {
		return "", fmt.Errorf("failed to render RSS: %w", err)
	}
	return rss, nil
}

func (g *Generator) item(r projection.Record) *feeds.Item {
	permalink := g.itemLink(r)

	item := &feeds.Item{
		Id:    permalink,
		Title: cmp.Or(deref(r.Title), fmt.Sprintf("%s %v", r.Type, r.Ref().Value())),
		Link:  &feeds.Link{Href: cmp.Or(deref(r.URL), permalink)},
	}

	item.Description = cmp.Or(deref(r.Text), item.Title)

	if r.Author != nil {
		item.Author = &feeds.Author{Name: *r.Author}
	}
	if r.Time != nil {
		item.Created = *r.Time
	}
	return item
}

func (g *Generator) selfLink(kind model.Kind) string {
	return fmt.Sprintf("%s/feeds/%s", g.base(), kind)
}

func (g *Generator) itemLink(r projection.Record) string {
	return fmt.Sprintf("%s/items/%v", g.base(), r.Ref().Value())
}

func (g *Generator) base() string {
	if g.baseURL != "" {
		return g.baseURL
	}
	return "http://localhost"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
