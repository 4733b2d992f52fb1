package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/sitesmith/sitesmith/internal/llm"
)

const defaultRecordsBaseURL = "https://export.arxiv.org/api/query"

// Record is one structured record returned by the external data source.
type Record struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Abstract    string   `json:"abstract"`
	PublishedAt string   `json:"published_at"`
	SourceURL   string   `json:"source_url"`
	PDFURL      string   `json:"pdf_url"`
}

// RecordsClient queries the arXiv Atom API for recent papers.
type RecordsClient struct {
	baseURL string
	client  *http.Client
}

// NewRecordsClient creates a records client. An empty baseURL selects the
// public arXiv endpoint.
func NewRecordsClient(baseURL string, client *http.Client) *RecordsClient {
	if baseURL == "" {
		baseURL = defaultRecordsBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RecordsClient{baseURL: baseURL, client: client}
}

// Fetch queries the data source. query may be empty; category narrows to an
// arXiv category such as cs.AI; limit caps the result count.
func (c *RecordsClient) Fetch(ctx context.Context, query, category string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}
	search := strings.TrimSpace(query)
	if category != "" {
		catExpr := "cat:" + category
		if search == "" {
			search = catExpr
		} else {
			search = fmt.Sprintf("%s AND all:%s", catExpr, search)
		}
	} else if search != "" {
		search = "all:" + search
	} else {
		search = "cat:cs.AI"
	}

	params := url.Values{}
	params.Set("search_query", search)
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprint(limit))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build records request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("records endpoint returned %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read records response: %w", err)
	}
	return parseAtomFeed(body)
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	Authors   []atomAuthor `xml:"author"`
	Links     []atomLink   `xml:"link"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
}

func parseAtomFeed(body []byte) ([]Record, error) {
	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parse records feed: %w", err)
	}
	records := make([]Record, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		rec := Record{
			ID:          strings.TrimPrefix(entry.ID, "http://arxiv.org/abs/"),
			Title:       collapseWhitespace(entry.Title),
			Abstract:    collapseWhitespace(entry.Summary),
			PublishedAt: entry.Published,
			SourceURL:   entry.ID,
		}
		for _, a := range entry.Authors {
			rec.Authors = append(rec.Authors, a.Name)
		}
		for _, l := range entry.Links {
			if l.Title == "pdf" {
				rec.PDFURL = l.Href
			}
		}
		if rec.PDFURL == "" && rec.ID != "" {
			rec.PDFURL = "https://arxiv.org/pdf/" + rec.ID + ".pdf"
		}
		records = append(records, rec)
	}
	return records, nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

type fetchRecordsArgs struct {
	Query    string `mapstructure:"query"`
	Category string `mapstructure:"category"`
	Limit    int    `mapstructure:"limit"`
}

// FetchRecordsTool exposes the records client to the reasoning service.
type FetchRecordsTool struct {
	Client *RecordsClient
}

// Definition describes the fetch_structured_records tool.
func (t *FetchRecordsTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "fetch_structured_records",
		Description: "Fetch recent papers from the arXiv API as structured records.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":    map[string]any{"type": "string", "description": "Free-text query terms"},
				"category": map[string]any{"type": "string", "description": "arXiv category, e.g. cs.AI"},
				"limit":    map[string]any{"type": "integer", "description": "Maximum records to return"},
			},
		},
	}
}

// Invoke fetches records.
func (t *FetchRecordsTool) Invoke(ctx context.Context, raw map[string]any) (any, error) {
	var args fetchRecordsArgs
	if err := mapstructure.Decode(raw, &args); err != nil {
		return nil, fmt.Errorf("fetch_structured_records arguments: %w", err)
	}
	records, err := t.Client.Fetch(ctx, args.Query, args.Category, args.Limit)
	if err != nil {
		// Degrade instead of failing the task: the generator can fall
		// back to sample data.
		return map[string]any{"status": "error", "message": err.Error(), "records": []Record{}}, nil
	}
	return map[string]any{"status": "success", "records": records}, nil
}
