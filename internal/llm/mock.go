package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strings"
	"sync/atomic"
)

// MockClient is a deterministic offline reasoning service. It recognizes
// the planner, generator, and evaluator prompts and answers with canned
// structured content, so the whole pipeline runs without network access.
// It mirrors the behavior of a real tool-calling model: the generator
// conversation gets a create_file tool invocation first and a closing
// summary once the tool result is echoed back.
type MockClient struct {
	calls atomic.Int64
}

// NewMock returns a mock reasoning client.
func NewMock() *MockClient {
	return &MockClient{}
}

var targetFileRe = regexp.MustCompile(`Target File:\s*(\S+)`)

// Complete answers based on the shape of the conversation.
func (m *MockClient) Complete(_ context.Context, conversation []Message, tools []ToolDefinition) (Response, error) {
	m.calls.Add(1)
	lastUser := lastOfRole(conversation, RoleUser)

	switch {
	case strings.Contains(lastUser, "create a detailed project plan"):
		return Response{Content: mockPlanJSON}, nil
	case strings.Contains(lastUser, "evaluate the following"):
		return Response{Content: mockEvaluationJSON}, nil
	case hasTool(tools, "create_file"):
		return m.completeGeneration(conversation, lastUser)
	default:
		return Response{Content: "Acknowledged."}, nil
	}
}

// Calls reports how many completions were served. Used by tests.
func (m *MockClient) Calls() int64 {
	return m.calls.Load()
}

func (m *MockClient) completeGeneration(conversation []Message, lastUser string) (Response, error) {
	// After a tool result turn the file has been written; close out.
	if lastOfRole(conversation, RoleTool) != "" {
		return Response{Content: "The file has been created as requested."}, nil
	}

	target := "index.html"
	if match := targetFileRe.FindStringSubmatch(lastUser); match != nil {
		target = match[1]
	}
	args, err := json.Marshal(map[string]string{
		"path":    target,
		"content": placeholderContent(target),
	})
	if err != nil {
		return Response{}, fmt.Errorf("marshal mock tool args: %w", err)
	}
	return Response{ToolCalls: []ToolCall{{
		ID:        fmt.Sprintf("mock-call-%d", m.calls.Load()),
		Name:      "create_file",
		Arguments: args,
	}}}, nil
}

func lastOfRole(conversation []Message, role string) string {
	for i := len(conversation) - 1; i >= 0; i-- {
		if conversation[i].Role == role {
			return conversation[i].Content
		}
	}
	return ""
}

func hasTool(tools []ToolDefinition, name string) bool {
	for _, t := range tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

func placeholderContent(target string) string {
	switch path.Ext(target) {
	case ".html":
		return "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n  <meta charset=\"utf-8\">\n  <title>arXiv CS Daily</title>\n  <link rel=\"stylesheet\" href=\"css/style.css\">\n</head>\n<body>\n  <header><h1>arXiv CS Daily</h1></header>\n  <main id=\"content\"></main>\n  <script src=\"js/script.js\"></script>\n</body>\n</html>\n"
	case ".css":
		return "body {\n  font-family: system-ui, sans-serif;\n  margin: 0;\n  color: #1a1a2e;\n}\n\nheader {\n  padding: 1rem 2rem;\n  background: #16213e;\n  color: #fff;\n}\n"
	case ".js":
		return "document.addEventListener('DOMContentLoaded', () => {\n  fetch('data/papers.json')\n    .then((resp) => resp.json())\n    .then((data) => renderPapers(data.papers || []));\n});\n\nfunction renderPapers(papers) {\n  const content = document.getElementById('content');\n  if (!content) return;\n  content.innerHTML = papers.map((p) => `<article><h2>${p.title}</h2><p>${p.abstract}</p></article>`).join('');\n}\n"
	case ".json":
		return "{\n  \"papers\": [\n    {\n      \"id\": \"2401.00001\",\n      \"title\": \"Attention Is Still All You Need\",\n      \"authors\": [\"A. Researcher\", \"B. Scholar\"],\n      \"abstract\": \"A sample abstract for offline runs.\",\n      \"category\": \"cs.AI\",\n      \"published\": \"2024-01-01\"\n    }\n  ]\n}\n"
	default:
		return "# " + target + "\n\nGenerated placeholder content.\n"
	}
}

const mockPlanJSON = `{
  "project_name": "arXiv CS Daily",
  "architecture_notes": "Static site: JSON data feeds three pages, shared CSS and JS.",
  "tasks": [
    {"id": 1, "title": "Create sample data", "description": "Create papers.json with sample arXiv papers", "target_path": "data/papers.json", "dependencies": [], "critical": false},
    {"id": 2, "title": "Create homepage", "description": "Create index.html with navigation and category links", "target_path": "index.html", "dependencies": [1], "critical": true},
    {"id": 3, "title": "Create category page", "description": "Create category.html to display papers by category", "target_path": "category.html", "dependencies": [1], "critical": true},
    {"id": 4, "title": "Create paper detail page", "description": "Create paper.html with full paper details and citations", "target_path": "paper.html", "dependencies": [1], "critical": true},
    {"id": 5, "title": "Add CSS styling", "description": "Create style.css with responsive design", "target_path": "css/style.css", "dependencies": [2, 3, 4], "critical": true},
    {"id": 6, "title": "Add JavaScript functionality", "description": "Create script.js for dynamic features and citations", "target_path": "js/script.js", "dependencies": [2, 3, 4], "critical": true}
  ]
}`

const mockEvaluationJSON = `{
  "score": 82,
  "verdict": "pass",
  "findings": [
    "All planned files are present and non-empty.",
    "Pages share a consistent stylesheet and data source.",
    "Consider adding pagination for large paper lists."
  ]
}`
