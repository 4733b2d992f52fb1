package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sitesmith/sitesmith/internal/llm"
	"github.com/sitesmith/sitesmith/internal/model"
	"github.com/sitesmith/sitesmith/internal/protocol"
)

// maxArtifactChars caps how much of each file goes into the evaluation
// prompt.
const maxArtifactChars = 4000

// artifactReader is the subset of the file tools the evaluator needs.
type artifactReader interface {
	ReadFile(logical string) (string, error)
}

// Evaluator scores the artifact set against the original requirement.
type Evaluator struct {
	client  llm.Client
	files   artifactReader
	retries int
	thought ThoughtFunc
}

// NewEvaluator builds an evaluator reading artifacts through files.
func NewEvaluator(client llm.Client, files artifactReader, retries int, thought ThoughtFunc) *Evaluator {
	if thought == nil {
		thought = noThought
	}
	return &Evaluator{client: client, files: files, retries: retries, thought: thought}
}

// Evaluate reads the listed artifacts and asks the reasoning service for a
// scored report. A malformed response degrades to a heuristic report built
// from artifact presence; only transport failures return an error.
func (e *Evaluator) Evaluate(ctx context.Context, requirement string, req protocol.EvaluationRequest) (model.EvaluationReport, error) {
	e.thought(fmt.Sprintf("Evaluating %d artifact(s)", len(req.ArtifactPaths)))

	var sb strings.Builder
	fmt.Fprintf(&sb, "Please evaluate the following generated files against this requirement:\n\n%s\n", requirement)
	for _, p := range req.ArtifactPaths {
		content, err := e.files.ReadFile(p)
		if err != nil {
			fmt.Fprintf(&sb, "\n--- %s ---\n(missing)\n", p)
			continue
		}
		if len(content) > maxArtifactChars {
			content = content[:maxArtifactChars] + "\n... (truncated)"
		}
		fmt.Fprintf(&sb, "\n--- %s ---\n%s\n", p, content)
	}

	conversation := []llm.Message{
		llm.SystemMessage(evaluatorSystemPrompt),
		llm.UserMessage(sb.String()),
	}
	resp, err := completeWithRetry(ctx, e.client, conversation, nil, e.retries)
	if err != nil {
		return model.EvaluationReport{}, &EvaluationFailure{Transient: llm.Transient(err), Err: err}
	}

	report, err := parseEvaluation([]byte(resp.Content))
	if err != nil {
		e.thought(fmt.Sprintf("Evaluation response unusable (%v), falling back to artifact check", err))
		return e.basicEvaluation(req.ArtifactPaths), nil
	}
	e.thought(fmt.Sprintf("Evaluation complete: score %d, verdict %s", report.Score, report.Verdict))
	return report, nil
}

func parseEvaluation(raw []byte) (model.EvaluationReport, error) {
	doc, ok := extractJSON(raw)
	if !ok {
		return model.EvaluationReport{}, fmt.Errorf("response contains no JSON object")
	}
	if err := validateAgainst(evaluationSchema, doc); err != nil {
		return model.EvaluationReport{}, err
	}
	var report model.EvaluationReport
	if err := json.Unmarshal(doc, &report); err != nil {
		return model.EvaluationReport{}, fmt.Errorf("unmarshal evaluation: %w", err)
	}
	if report.Findings == nil {
		report.Findings = []string{}
	}
	return report, nil
}

// basicEvaluation scores the run purely on artifact presence when the
// reasoning service cannot produce a structured report.
func (e *Evaluator) basicEvaluation(paths []string) model.EvaluationReport {
	report := model.EvaluationReport{Findings: []string{}}
	if len(paths) == 0 {
		report.Findings = append(report.Findings, "No artifacts were produced.")
		return report
	}
	present := 0
	for _, p := range paths {
		content, err := e.files.ReadFile(p)
		if err != nil || strings.TrimSpace(content) == "" {
			report.Findings = append(report.Findings, fmt.Sprintf("Artifact %s is missing or empty.", p))
			continue
		}
		present++
	}
	report.Score = 70 * present / len(paths)
	report.Findings = append(report.Findings,
		fmt.Sprintf("Structured evaluation unavailable; %d of %d artifacts present and non-empty.", present, len(paths)))
	return report
}
