package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
)

const maxPageSize = 5 << 20

// Extractor fetches a web page and reduces it to its readable article.
type Extractor struct {
	httpClient *http.Client
	userAgent  string
	text       *TextRenderer
}

func NewExtractor(httpClient *http.Client, userAgent string) *Extractor {
	return &Extractor{
		httpClient: httpClient,
		userAgent:  userAgent,
		text:       NewTextRenderer(),
	}
}

func (e *Extractor) Extract(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	data, err := e.Fetch(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article content: %w", err)
	}

	return e.Run(data, u)
}

// Run extracts the article from an HTML document. pageURL resolves
// relative links and may be nil.
func (e *Extractor) Run(data []byte, pageURL *url.URL) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	extracted := strings.TrimSpace(e.text.Sanitize(article.Content))
	if extracted == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Content extracted successfully",
		"title", article.Title,
		"content_length", len(extracted))

	return extracted, nil
}

func (e *Extractor) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
