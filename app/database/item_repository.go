package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lysyi3m/quickcheck/app/model"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const selectItems = `
	SELECT i.id, i.upstream_id, i.type, i.author, i.time, i.deleted, i.dead,
	       COALESCE(j.text, c.text, p.text)      AS text,
	       COALESCE(j.title, s.title, p.title)   AS title,
	       COALESCE(j.url, s.url)                AS url,
	       COALESCE(s.score, p.score, o.score)   AS score,
	       COALESCE(s.descendants, p.descendants) AS descendants,
	       COALESCE(c.parent_id, o.parent_id)    AS parent_id,
	       pi.upstream_id                        AS parent_upstream_id
	FROM items i
	LEFT JOIN jobs j ON j.item_id = i.id
	LEFT JOIN stories s ON s.item_id = i.id
	LEFT JOIN comments c ON c.item_id = i.id
	LEFT JOIN polls p ON p.item_id = i.id
	LEFT JOIN poll_options o ON o.item_id = i.id
	LEFT JOIN items pi ON pi.id = COALESCE(c.parent_id, o.parent_id)`

// Most recent first; items without a timestamp go last.
const orderItems = ` ORDER BY i.time IS NULL, i.time DESC, i.rowid DESC`

// ItemRepository handles database operations for items
type ItemRepository struct {
	db *DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// CreateItem stores the base record and its extension record in one
// transaction. A duplicate upstream id yields *model.ConflictError and a
// parent of the wrong kind yields *model.ValidationError; in both cases
// nothing is written.
func (r *ItemRepository) CreateItem(ctx context.Context, item model.NewItem) (*model.Item, error) {
	kind := item.Kind()
	if !kind.Valid() {
		return nil, fmt.Errorf("failed to create item: missing item details")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if item.UpstreamID != nil {
		var count int
		err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM items WHERE upstream_id = ?`, *item.UpstreamID)
		if err != nil {
			return nil, fmt.Errorf("failed to check upstream id: %w", err)
		}
		if count > 0 {
			return nil, &model.ConflictError{UpstreamID: *item.UpstreamID}
		}
	}

	if parent := model.ParentOf(item.Details); parent != nil {
		upstreamID, err := checkParent(ctx, tx, kind, parent.ID)
		if err != nil {
			return nil, err
		}
		parent.UpstreamID = upstreamID
	}

	id := uuid.New()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO items (id, upstream_id, type, author, time, deleted, dead)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id.String(), intArg(item.UpstreamID), string(kind), stringArg(item.Author),
		timeArg(item.Time), item.Deleted, item.Dead)
	if err != nil {
		if item.UpstreamID != nil && isUniqueViolation(err) {
			return nil, &model.ConflictError{UpstreamID: *item.UpstreamID}
		}
		return nil, fmt.Errorf("failed to insert item: %w", err)
	}

	if err := insertDetails(ctx, tx, id, item.Details); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit item: %w", err)
	}

	return &model.Item{
		ID:         id,
		UpstreamID: item.UpstreamID,
		Kind:       kind,
		Author:     item.Author,
		Time:       storedTime(item.Time),
		Deleted:    item.Deleted,
		Dead:       item.Dead,
		Details:    item.Details,
	}, nil
}

func checkParent(ctx context.Context, tx *sqlx.Tx, kind model.Kind, parentID uuid.UUID) (*int64, error) {
	var parent struct {
		Type       string        `db:"type"`
		UpstreamID sql.NullInt64 `db:"upstream_id"`
	}
	err := tx.GetContext(ctx, &parent, `SELECT type, upstream_id FROM items WHERE id = ?`, parentID.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &model.ValidationError{Field: "parent", Message: "parent item does not exist"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load parent item: %w", err)
	}

	if !kind.AcceptsParent(model.Kind(parent.Type)) {
		return nil, model.NewParentKindError(kind, model.Kind(parent.Type))
	}
	return int64Ptr(parent.UpstreamID), nil
}

func insertDetails(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, details model.Details) error {
	var err error
	switch d := details.(type) {
	case *model.Job:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO jobs (item_id, text, title, url) VALUES (?, ?, ?, ?)
		`, id.String(), stringArg(d.Text), stringArg(d.Title), stringArg(d.URL))
	case *model.Story:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO stories (item_id, descendants, score, title, url) VALUES (?, ?, ?, ?, ?)
		`, id.String(), intArg(d.Descendants), intArg(d.Score), stringArg(d.Title), stringArg(d.URL))
	case *model.Comment:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO comments (item_id, parent_id, text) VALUES (?, ?, ?)
		`, id.String(), refArg(d.Parent), stringArg(d.Text))
	case *model.Poll:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO polls (item_id, descendants, score, title, text) VALUES (?, ?, ?, ?, ?)
		`, id.String(), intArg(d.Descendants), intArg(d.Score), stringArg(d.Title), stringArg(d.Text))
	case *model.PollOption:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO poll_options (item_id, parent_id, score) VALUES (?, ?, ?)
		`, id.String(), refArg(d.Parent), intArg(d.Score))
	default:
		return fmt.Errorf("unsupported item details %T", details)
	}

	if err != nil {
		return fmt.Errorf("failed to insert %s details: %w", details.Kind(), err)
	}
	return nil
}

// UpdateDetails overwrites the extension record of an existing item. The
// parent of a comment or poll option is kept; base fields are untouched.
func (r *ItemRepository) UpdateDetails(ctx context.Context, id uuid.UUID, details model.Details) (*model.Item, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var kind string
	err = tx.GetContext(ctx, &kind, `SELECT type FROM items WHERE id = ?`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	if model.Kind(kind) != details.Kind() {
		return nil, fmt.Errorf("failed to update item %s: cannot store %s details on a %s", id, details.Kind(), kind)
	}

	switch d := details.(type) {
	case *model.Job:
		_, err = tx.ExecContext(ctx, `
			UPDATE jobs SET text = ?, title = ?, url = ? WHERE item_id = ?
		`, stringArg(d.Text), stringArg(d.Title), stringArg(d.URL), id.String())
	case *model.Story:
		_, err = tx.ExecContext(ctx, `
			UPDATE stories SET descendants = ?, score = ?, title = ?, url = ? WHERE item_id = ?
		`, intArg(d.Descendants), intArg(d.Score), stringArg(d.Title), stringArg(d.URL), id.String())
	case *model.Comment:
		_, err = tx.ExecContext(ctx, `
			UPDATE comments SET text = ? WHERE item_id = ?
		`, stringArg(d.Text), id.String())
	case *model.Poll:
		_, err = tx.ExecContext(ctx, `
			UPDATE polls SET descendants = ?, score = ?, title = ?, text = ? WHERE item_id = ?
		`, intArg(d.Descendants), intArg(d.Score), stringArg(d.Title), stringArg(d.Text), id.String())
	case *model.PollOption:
		_, err = tx.ExecContext(ctx, `
			UPDATE poll_options SET score = ? WHERE item_id = ?
		`, intArg(d.Score), id.String())
	default:
		return nil, fmt.Errorf("unsupported item details %T", details)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update %s details: %w", details.Kind(), err)
	}

	updated, err := findOne(ctx, tx, selectItems+` WHERE i.id = ?`, id.String())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit item update: %w", err)
	}
	return updated, nil
}

// FindByID returns the item with the given local id, or nil if there is none
func (r *ItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	return findOne(ctx, r.db, selectItems+` WHERE i.id = ?`, id.String())
}

// FindByUpstreamID returns the item synced from the given upstream id, or nil
func (r *ItemRepository) FindByUpstreamID(ctx context.Context, upstreamID int64) (*model.Item, error) {
	return findOne(ctx, r.db, selectItems+` WHERE i.upstream_id = ?`, upstreamID)
}

func findOne(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) (*model.Item, error) {
	var row itemRow
	err := sqlx.GetContext(ctx, q, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	item, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// MaxUpstreamID returns the highest stored upstream id, or nil when no
// synced item exists yet
func (r *ItemRepository) MaxUpstreamID(ctx context.Context) (*int64, error) {
	var maxID sql.NullInt64
	if err := r.db.GetContext(ctx, &maxID, `SELECT MAX(upstream_id) FROM items`); err != nil {
		return nil, fmt.Errorf("failed to get max upstream id: %w", err)
	}
	return int64Ptr(maxID), nil
}

// ChildrenOf returns the comments below a story or comment, or the options
// of a poll
func (r *ItemRepository) ChildrenOf(ctx context.Context, id uuid.UUID) ([]model.Item, error) {
	var rows []itemRow
	err := r.db.SelectContext(ctx, &rows,
		selectItems+` WHERE COALESCE(c.parent_id, o.parent_id) = ?`+orderItems, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get children: %w", err)
	}
	return rowsToModels(rows)
}

// ListItems returns items matching the filter in default order
func (r *ItemRepository) ListItems(ctx context.Context, filter model.ListFilter) ([]model.Item, error) {
	var (
		conditions []string
		args       []any
	)

	if filter.Kind != "" {
		conditions = append(conditions, "i.type = ?")
		args = append(args, string(filter.Kind))
	}

	if filter.Search != "" {
		pattern := "%" + escapeLike(filter.Search) + "%"
		conditions = append(conditions,
			`(COALESCE(j.title, s.title, p.title) LIKE ? ESCAPE '\' OR COALESCE(j.text, p.text) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	query := selectItems
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += orderItems + " LIMIT ? OFFSET ?"
	args = append(args, filter.PageLimit(), max(filter.Offset, 0))

	var rows []itemRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return rowsToModels(rows)
}

// GetItemStats returns item counts by type and origin
func (r *ItemRepository) GetItemStats(ctx context.Context) (*ItemStats, error) {
	var rows []struct {
		Type  string `db:"type"`
		Total int    `db:"total"`
		Local int    `db:"local"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT type,
		       COUNT(*) AS total,
		       SUM(CASE WHEN upstream_id IS NULL THEN 1 ELSE 0 END) AS local
		FROM items
		GROUP BY type
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get item stats: %w", err)
	}

	stats := &ItemStats{ByType: make(map[model.Kind]int, len(model.Kinds))}
	for _, k := range model.Kinds {
		stats.ByType[k] = 0
	}
	for _, row := range rows {
		stats.ByType[model.Kind(row.Type)] = row.Total
		stats.Total += row.Total
		stats.Local += row.Local
	}
	stats.Synced = stats.Total - stats.Local

	stats.LastUpstreamID, err = r.MaxUpstreamID(ctx)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
