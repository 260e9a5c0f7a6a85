package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mohammad-safakhou/copilot/models"
)

const defaultEndpoint = "https://google.serper.dev/search"

// Client searches the web through the Serper API.
type Client struct {
	APIKey     string
	Endpoint   string
	HTTPClient *http.Client
}

// New creates a Serper client with the given key and request timeout.
func New(apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		APIKey:     apiKey,
		Endpoint:   defaultEndpoint,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Search runs one query and returns up to num organic results.
func (c *Client) Search(ctx context.Context, query string, num int) ([]models.SearchResult, error) {
	// https://serper.dev/ docs
	payload := map[string]any{"q": query, "num": num, "gl": "us", "hl": "en"}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper API returned status: %d", resp.StatusCode)
	}

	var raw struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	out := make([]models.SearchResult, 0, len(raw.Organic))
	for i, item := range raw.Organic {
		if i >= num {
			break
		}
		out = append(out, models.SearchResult{
			Title:          item.Title,
			Snippet:        item.Snippet,
			URL:            item.Link,
			RelevanceScore: 1.0, // updated by reranking
		})
	}
	return out, nil
}
