package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/lysyi3m/quickcheck/app/model"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func ptr[T any](v T) *T {
	return &v
}

func at(sec int64) *time.Time {
	t := time.Unix(sec, 0).UTC()
	return &t
}

func story(upstreamID *int64, title string, ts int64) model.NewItem {
	return model.NewItem{
		UpstreamID: upstreamID,
		Author:     ptr("pg"),
		Time:       at(ts),
		Details:    &model.Story{Title: ptr(title), Score: ptr(int64(10))},
	}
}

func comment(upstreamID *int64, parent *model.Item, ts int64) model.NewItem {
	var ref *model.Ref
	if parent != nil {
		r := parent.Ref()
		ref = &r
	}
	return model.NewItem{
		UpstreamID: upstreamID,
		Author:     ptr("dang"),
		Time:       at(ts),
		Details:    &model.Comment{Parent: ref, Text: ptr("a comment")},
	}
}
