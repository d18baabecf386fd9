package upstream

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

var _ Client = (*FixtureClient)(nil)

// FixtureClient serves a fixed set of items from memory. Ids without an
// item are reported as absent and ids in Failing as fetch errors.
type FixtureClient struct {
	mu      sync.Mutex
	maxID   int64
	items   map[int64]RawItem
	failing map[int64]error
	fetched []int64
}

type fixtureFile struct {
	MaxID int64     `yaml:"max_id"`
	Items []RawItem `yaml:"items"`
}

func NewFixtureClient(maxID int64, items ...RawItem) *FixtureClient {
	c := &FixtureClient{
		maxID:   maxID,
		items:   make(map[int64]RawItem, len(items)),
		failing: make(map[int64]error),
	}
	for _, item := range items {
		c.items[item.ID] = item
	}
	return c
}

// LoadFixture reads a YAML document with max_id and a list of items.
func LoadFixture(path string) (*FixtureClient, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file %s: %w", path, err)
	}

	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture file %s: %w", path, err)
	}

	maxID := f.MaxID
	for _, item := range f.Items {
		if item.ID <= 0 {
			return nil, fmt.Errorf("fixture item without id in %s", path)
		}
		if item.ID > maxID {
			maxID = item.ID
		}
	}

	return NewFixtureClient(maxID, f.Items...), nil
}

// SetMaxID moves the upstream head, simulating new items being published.
func (c *FixtureClient) SetMaxID(maxID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxID = maxID
}

func (c *FixtureClient) AddItem(item RawItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[item.ID] = item
}

// Fail makes every fetch of id return err until Recover is called. Id 0
// fails the max id request.
func (c *FixtureClient) Fail(id int64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failing[id] = err
}

func (c *FixtureClient) Recover(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.failing, id)
}

// Fetched returns the ids requested so far, in order.
func (c *FixtureClient) Fetched() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.fetched...)
}

func (c *FixtureClient) FetchMaxID(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, &FetchError{Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err, ok := c.failing[0]; ok {
		return 0, &FetchError{Err: err}
	}
	return c.maxID, nil
}

func (c *FixtureClient) FetchItem(ctx context.Context, id int64) (*RawItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{ID: id, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fetched = append(c.fetched, id)

	if err, ok := c.failing[id]; ok {
		return nil, &FetchError{ID: id, Err: err}
	}

	item, ok := c.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}
