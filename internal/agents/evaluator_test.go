package agents

import (
	"context"
	"testing"

	"github.com/sitesmith/sitesmith/internal/llm"
	"github.com/sitesmith/sitesmith/internal/model"
	"github.com/sitesmith/sitesmith/internal/protocol"
	"github.com/sitesmith/sitesmith/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evaluationFiles(t *testing.T, contents map[string]string) *tools.FileTools {
	t.Helper()
	files, err := tools.NewFileTools(t.TempDir())
	require.NoError(t, err)
	for path, content := range contents {
		require.NoError(t, files.CreateFile(path, content))
	}
	return files
}

func TestEvaluatorParsesStructuredReport(t *testing.T) {
	t.Parallel()

	files := evaluationFiles(t, map[string]string{"index.html": "<html></html>"})
	eval := NewEvaluator(llm.NewMock(), files, 1, nil)

	report, err := eval.Evaluate(context.Background(), "build a site",
		protocol.EvaluationRequest{ArtifactPaths: []string{"index.html"}})
	require.NoError(t, err)

	assert.Equal(t, 82, report.Score)
	assert.Equal(t, model.VerdictPass, report.Verdict)
	assert.NotEmpty(t, report.Findings)
}

func TestEvaluatorFallsBackOnMalformedResponse(t *testing.T) {
	t.Parallel()

	files := evaluationFiles(t, map[string]string{
		"index.html": "<html></html>",
		"styles.css": "",
	})
	client := &fakeClient{responses: []llm.Response{{Content: "Looks fine to me."}}}
	eval := NewEvaluator(client, files, 1, nil)

	report, err := eval.Evaluate(context.Background(), "build a site",
		protocol.EvaluationRequest{ArtifactPaths: []string{"index.html", "styles.css", "app.js"}})
	require.NoError(t, err, "malformed evaluation degrades, it does not fail")

	// One of three artifacts is present and non-empty.
	assert.Equal(t, 70/3, report.Score)
	assert.NotEmpty(t, report.Findings)
}

func TestEvaluatorScoresEmptyArtifactSet(t *testing.T) {
	t.Parallel()

	files := evaluationFiles(t, nil)
	client := &fakeClient{responses: []llm.Response{{Content: "nothing to report"}}}
	eval := NewEvaluator(client, files, 1, nil)

	report, err := eval.Evaluate(context.Background(), "build a site", protocol.EvaluationRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Score)
	assert.Contains(t, report.Findings, "No artifacts were produced.")
}

func TestEvaluatorSurfacesTransportFailure(t *testing.T) {
	t.Parallel()

	files := evaluationFiles(t, map[string]string{"index.html": "<html></html>"})
	client := &fakeClient{errs: []error{context.DeadlineExceeded}}
	eval := NewEvaluator(client, files, 1, nil)

	_, err := eval.Evaluate(context.Background(), "build a site",
		protocol.EvaluationRequest{ArtifactPaths: []string{"index.html"}})
	var ef *EvaluationFailure
	require.ErrorAs(t, err, &ef)
	assert.True(t, ef.Transient)
}

func TestEvaluatorPromptIncludesArtifacts(t *testing.T) {
	t.Parallel()

	files := evaluationFiles(t, map[string]string{"index.html": "<html>marker-content</html>"})
	client := &fakeClient{responses: []llm.Response{{Content: `{"score": 90, "verdict": "pass", "findings": ["ok"]}`}}}
	eval := NewEvaluator(client, files, 1, nil)

	_, err := eval.Evaluate(context.Background(), "build a site",
		protocol.EvaluationRequest{ArtifactPaths: []string{"index.html"}})
	require.NoError(t, err)

	require.NotEmpty(t, client.lastConv)
	prompt := client.lastConv[len(client.lastConv)-1].Content
	assert.Contains(t, prompt, "marker-content")
	assert.Contains(t, prompt, "evaluate the following")
}
