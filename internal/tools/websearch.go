package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/sitesmith/sitesmith/internal/llm"
)

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// SearchClient performs web searches. With an API key (Serper) it uses the
// keyed endpoint, otherwise the unauthenticated DuckDuckGo instant-answer
// API.
type SearchClient struct {
	apiKey string
	client *http.Client
}

// NewSearchClient creates a search client reading the key from the given
// environment variable (empty disables the keyed provider).
func NewSearchClient(apiKeyEnv string, client *http.Client) *SearchClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	key := ""
	if apiKeyEnv != "" {
		key = os.Getenv(apiKeyEnv)
	}
	return &SearchClient{apiKey: key, client: client}
}

// Provider reports which backend the client will use.
func (c *SearchClient) Provider() string {
	if c.apiKey != "" {
		return "serper"
	}
	return "duckduckgo"
}

// Search runs the query and returns up to limit results.
func (c *SearchClient) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}
	if c.apiKey != "" {
		return c.serperSearch(ctx, query, limit)
	}
	return c.duckduckgoSearch(ctx, query, limit)
}

func (c *SearchClient) serperSearch(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	payload, err := json.Marshal(map[string]any{"q": query, "num": limit})
	if err != nil {
		return nil, fmt.Errorf("encode search payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://google.serper.dev/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search endpoint returned %s", resp.Status)
	}

	var body struct {
		Organic []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Link    string `json:"link"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	results := make([]SearchResult, 0, limit)
	for _, item := range body.Organic {
		results = append(results, SearchResult{Title: item.Title, Snippet: item.Snippet, URL: item.Link})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (c *SearchClient) duckduckgoSearch(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.duckduckgo.com/?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search endpoint returned %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	var answer struct {
		AbstractText  string `json:"AbstractText"`
		AbstractURL   string `json:"AbstractURL"`
		Heading       string `json:"Heading"`
		RelatedTopics []struct {
			Text     string `json:"Text"`
			FirstURL string `json:"FirstURL"`
		} `json:"RelatedTopics"`
	}
	if err := json.Unmarshal(body, &answer); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	var results []SearchResult
	if answer.AbstractText != "" {
		results = append(results, SearchResult{Title: answer.Heading, Snippet: answer.AbstractText, URL: answer.AbstractURL})
	}
	for _, topic := range answer.RelatedTopics {
		if topic.Text == "" || topic.FirstURL == "" {
			continue
		}
		results = append(results, SearchResult{Title: topic.Text, Snippet: topic.Text, URL: topic.FirstURL})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

type searchArgs struct {
	Query string `mapstructure:"query"`
	Limit int    `mapstructure:"limit"`
}

// WebSearchTool exposes the search client to the reasoning service.
type WebSearchTool struct {
	Client *SearchClient
}

// Definition describes the web_search tool.
func (t *WebSearchTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "web_search",
		Description: "Search the web for current information and return title/snippet/url results.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "Search query"},
				"limit": map[string]any{"type": "integer", "description": "Maximum results to return"},
			},
			"required": []string{"query"},
		},
	}
}

// Invoke runs the search.
func (t *WebSearchTool) Invoke(ctx context.Context, raw map[string]any) (any, error) {
	var args searchArgs
	if err := mapstructure.Decode(raw, &args); err != nil {
		return nil, fmt.Errorf("web_search arguments: %w", err)
	}
	if args.Query == "" {
		return nil, fmt.Errorf("web_search requires a query")
	}
	results, err := t.Client.Search(ctx, args.Query, args.Limit)
	if err != nil {
		return map[string]any{"status": "error", "message": err.Error(), "results": []SearchResult{}}, nil
	}
	return map[string]any{"status": "success", "results": results}, nil
}
