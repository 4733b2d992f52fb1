package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2401.00001v1</id>
    <title>Attention Is
      Still All You Need</title>
    <summary>  A sample abstract
      spanning lines.  </summary>
    <published>2024-01-01T00:00:00Z</published>
    <author><name>A. Researcher</name></author>
    <author><name>B. Scholar</name></author>
    <link href="http://arxiv.org/abs/2401.00001v1" rel="alternate" type="text/html"/>
    <link href="http://arxiv.org/pdf/2401.00001v1" rel="related" type="application/pdf" title="pdf"/>
  </entry>
</feed>`

func TestRecordsClientFetchParsesAtom(t *testing.T) {
	t.Parallel()

	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	client := NewRecordsClient(srv.URL, srv.Client())
	records, err := client.Fetch(context.Background(), "attention", "cs.AI", 5)
	require.NoError(t, err)

	assert.Contains(t, gotQuery, "cat:cs.AI")
	assert.Contains(t, gotQuery, "attention")

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "Attention Is Still All You Need", rec.Title)
	assert.Equal(t, "A sample abstract spanning lines.", rec.Abstract)
	assert.Equal(t, []string{"A. Researcher", "B. Scholar"}, rec.Authors)
	assert.Equal(t, "http://arxiv.org/pdf/2401.00001v1", rec.PDFURL)
}

func TestRecordsClientFetchReportsHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewRecordsClient(srv.URL, srv.Client())
	_, err := client.Fetch(context.Background(), "attention", "cs.AI", 5)
	require.Error(t, err)
}

func TestFetchRecordsToolDegradesOnFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tool := &FetchRecordsTool{Client: NewRecordsClient(srv.URL, srv.Client())}
	out, err := tool.Invoke(context.Background(), map[string]any{"query": "attention", "category": "cs.AI"})
	require.NoError(t, err, "tool failures degrade to an error result")

	result, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "error", result["status"])
}

func TestFetchRecordsToolReturnsRecords(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	tool := &FetchRecordsTool{Client: NewRecordsClient(srv.URL, srv.Client())}
	out, err := tool.Invoke(context.Background(), map[string]any{"query": "attention"})
	require.NoError(t, err)

	result, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "success", result["status"])
}
