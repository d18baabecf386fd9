package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultBaseURL = "https://hacker-news.firebaseio.com/v0"

var _ Client = (*HTTPClient)(nil)

// HTTPClient talks to the Firebase-backed Hacker News API.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

func NewHTTPClient(baseURL, userAgent string, timeout time.Duration) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &HTTPClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
	}
}

func (c *HTTPClient) FetchMaxID(ctx context.Context) (int64, error) {
	data, err := c.get(ctx, c.baseURL+"/maxitem.json")
	if err != nil {
		return 0, &FetchError{Err: err}
	}

	var maxID int64
	if err := json.Unmarshal(data, &maxID); err != nil {
		return 0, &FetchError{Err: fmt.Errorf("failed to decode max item id: %w", err)}
	}
	return maxID, nil
}

func (c *HTTPClient) FetchItem(ctx context.Context, id int64) (*RawItem, error) {
	data, err := c.get(ctx, fmt.Sprintf("%s/item/%d.json", c.baseURL, id))
	if err != nil {
		return nil, &FetchError{ID: id, Err: err}
	}

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}

	var item RawItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, &FetchError{ID: id, Err: fmt.Errorf("failed to decode item: %w", err)}
	}
	if err := item.validate(id); err != nil {
		return nil, &FetchError{ID: id, Err: err}
	}
	return &item, nil
}

func (c *HTTPClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}
