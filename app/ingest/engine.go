package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/quickcheck/app/model"
	"github.com/lysyi3m/quickcheck/app/upstream"
	"golang.org/x/sync/singleflight"
)

const DefaultBootstrapWindow = 100

var ErrClosed = errors.New("sync engine closed")

// Store is the part of the item store the engine writes through.
type Store interface {
	CreateItem(ctx context.Context, item model.NewItem) (*model.Item, error)
	FindByUpstreamID(ctx context.Context, upstreamID int64) (*model.Item, error)
	MaxUpstreamID(ctx context.Context) (*int64, error)
}

// Result summarizes one sync run over the id range (From, To].
type Result struct {
	From      int64 `json:"from"`
	To        int64 `json:"to"`
	Processed int   `json:"processed"`
	Created   int   `json:"created"`
	Absent    int   `json:"absent"`
	Skipped   int   `json:"skipped"`
	Failed    int   `json:"failed"`
}

// Engine copies new upstream items into the store, resuming after the
// highest upstream id already stored.
type Engine struct {
	client upstream.Client
	store  Store
	window int64
	group  singleflight.Group

	// Runs are bound to the engine's lifetime, not to the caller that
	// happened to start them.
	mu     sync.Mutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewEngine(client upstream.Client, store Store, bootstrapWindow int64) *Engine {
	if bootstrapWindow <= 0 {
		bootstrapWindow = DefaultBootstrapWindow
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		client: client,
		store:  store,
		window: bootstrapWindow,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run performs one sync. Concurrent callers share the run in flight and
// its result. A fetch failure stops the run; items committed before it
// stay and the next run resumes after them.
//
// Cancelling ctx only stops the caller from waiting. The run itself
// continues until it finishes or Close is called.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	ch := e.group.DoChan("sync", func() (any, error) {
		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			return Result{}, ErrClosed
		}
		e.wg.Add(1)
		e.mu.Unlock()
		defer e.wg.Done()

		return e.run(e.ctx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			slog.Debug("Joined sync run in flight")
		}
		result, _ := res.Val.(Result)
		return result, res.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Close stops a run in flight between two ids and waits for it to return.
// Items committed before that stay stored.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.cancel()
	e.mu.Unlock()

	e.wg.Wait()
}

func (e *Engine) run(ctx context.Context) (Result, error) {
	started := time.Now()

	maxID, err := e.client.FetchMaxID(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to fetch upstream max id: %w", err)
	}

	from, err := e.resumeFrom(ctx, maxID)
	if err != nil {
		return Result{}, err
	}

	result := Result{From: from, To: maxID}
	if from >= maxID {
		slog.Debug("Store is up to date", "last_upstream_id", from, "max_id", maxID)
		return result, nil
	}

	slog.Info("Sync started", "from", from, "to", maxID)

	for id := from + 1; id <= maxID; id++ {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("sync interrupted before item %d: %w", id, err)
		}

		raw, err := e.client.FetchItem(ctx, id)
		if err != nil {
			slog.Error("Sync stopped", "upstream_id", id, "created", result.Created, "error", err)
			return result, fmt.Errorf("sync stopped at item %d: %w", id, err)
		}
		result.Processed++

		if raw == nil {
			result.Absent++
			continue
		}

		e.persist(ctx, id, raw, &result)
	}

	slog.Info("Sync completed",
		"from", result.From,
		"to", result.To,
		"duration", time.Since(started),
		"processed", result.Processed,
		"created", result.Created,
		"absent", result.Absent,
		"skipped", result.Skipped,
		"failed", result.Failed)

	return result, nil
}

func (e *Engine) resumeFrom(ctx context.Context, maxID int64) (int64, error) {
	last, err := e.store.MaxUpstreamID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get resumption point: %w", err)
	}
	if last != nil {
		return *last, nil
	}
	return max(maxID-e.window, 0), nil
}

func (e *Engine) persist(ctx context.Context, id int64, raw *upstream.RawItem, result *Result) {
	if raw.ID != id {
		slog.Warn("Upstream item id does not match requested id, storing under requested id",
			"upstream_id", id, "payload_id", raw.ID)
	}

	item, err := e.classify(ctx, id, raw)
	if err != nil {
		var unknown *unknownKindError
		if errors.As(err, &unknown) {
			slog.Warn("Skipping item of unknown type", "upstream_id", id, "type", raw.Type)
			result.Skipped++
			return
		}
		slog.Error("Failed to prepare item", "upstream_id", id, "error", err)
		result.Failed++
		return
	}

	_, err = e.store.CreateItem(ctx, item)

	var conflict *model.ConflictError
	switch {
	case err == nil:
		result.Created++
	case errors.As(err, &conflict):
		slog.Debug("Item already synced", "upstream_id", id)
		result.Skipped++
	default:
		slog.Error("Failed to store item", "upstream_id", id, "type", raw.Type, "error", err)
		result.Failed++
	}
}

type unknownKindError struct {
	kind string
}

func (e *unknownKindError) Error() string {
	return fmt.Sprintf("unknown item type %q", e.kind)
}

// classify builds the store input for the item fetched under id. The
// payload's own id is not trusted: the resumption point is derived from
// stored upstream ids.
func (e *Engine) classify(ctx context.Context, id int64, raw *upstream.RawItem) (model.NewItem, error) {
	kind, err := model.ParseKind(raw.Type)
	if err != nil {
		return model.NewItem{}, &unknownKindError{kind: raw.Type}
	}

	item := model.NewItem{
		UpstreamID: &id,
		Author:     raw.By,
		Deleted:    raw.Deleted,
		Dead:       raw.Dead,
	}
	if raw.Time != nil {
		t := time.Unix(*raw.Time, 0).UTC()
		item.Time = &t
	}

	var parent *model.Ref
	if kind.HasParent() {
		parent, err = e.resolveParent(ctx, id, kind, raw)
		if err != nil {
			return model.NewItem{}, err
		}
	}

	switch kind {
	case model.KindJob:
		item.Details = &model.Job{Text: raw.Text, Title: raw.Title, URL: raw.URL}
	case model.KindStory:
		item.Details = &model.Story{Descendants: raw.Descendants, Score: raw.Score, Title: raw.Title, URL: raw.URL}
	case model.KindComment:
		item.Details = &model.Comment{Parent: parent, Text: raw.Text}
	case model.KindPoll:
		item.Details = &model.Poll{Descendants: raw.Descendants, Score: raw.Score, Title: raw.Title, Text: raw.Text}
	case model.KindPollOption:
		item.Details = &model.PollOption{Parent: parent, Score: raw.Score}
	}
	return item, nil
}

// resolveParent maps the upstream parent id to a stored item. Parents that
// were never synced, or are of a kind the child cannot hang below, leave
// the reference empty.
func (e *Engine) resolveParent(ctx context.Context, id int64, kind model.Kind, raw *upstream.RawItem) (*model.Ref, error) {
	parentID := raw.ParentID()
	if parentID == nil {
		return nil, nil
	}

	parent, err := e.store.FindByUpstreamID(ctx, *parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve parent %d: %w", *parentID, err)
	}
	if parent == nil {
		slog.Debug("Parent not synced, storing without parent", "upstream_id", id, "parent_upstream_id", *parentID)
		return nil, nil
	}
	if !kind.AcceptsParent(parent.Kind) {
		slog.Warn("Parent has invalid type, storing without parent",
			"upstream_id", id,
			"type", kind,
			"parent_upstream_id", *parentID,
			"parent_type", parent.Kind)
		return nil, nil
	}

	ref := parent.Ref()
	return &ref, nil
}
