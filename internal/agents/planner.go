package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sitesmith/sitesmith/internal/llm"
	"github.com/sitesmith/sitesmith/internal/model"
	"github.com/sitesmith/sitesmith/internal/plan"
)

// Planner turns a requirement into a task plan and proposes remediation
// tasks after a failed evaluation.
type Planner struct {
	client  llm.Client
	retries int
	thought ThoughtFunc
}

// NewPlanner builds a planner over the reasoning client. retries bounds
// transient-failure attempts per completion.
func NewPlanner(client llm.Client, retries int, thought ThoughtFunc) *Planner {
	if thought == nil {
		thought = noThought
	}
	return &Planner{client: client, retries: retries, thought: thought}
}

// Plan decomposes the requirement into an ordered, acyclic task plan.
// A structural failure (malformed or cyclic plan) returns *PlanningFailure
// with Transient=false so the caller can fall back.
func (p *Planner) Plan(ctx context.Context, requirement string) (model.Plan, error) {
	p.thought(fmt.Sprintf("Decomposing requirement into tasks: %s", firstLine(requirement)))

	conversation := []llm.Message{
		llm.SystemMessage(plannerSystemPrompt),
		llm.UserMessage("Please create a detailed project plan for the following requirement:\n\n" + requirement),
	}
	resp, err := completeWithRetry(ctx, p.client, conversation, nil, p.retries)
	if err != nil {
		return model.Plan{}, &PlanningFailure{Transient: llm.Transient(err), Err: err}
	}

	parsed, err := parsePlan([]byte(resp.Content))
	if err != nil {
		return model.Plan{}, &PlanningFailure{Err: err}
	}
	if err := plan.Validate(parsed); err != nil {
		return model.Plan{}, &PlanningFailure{Err: err}
	}
	p.thought(fmt.Sprintf("Produced plan %q with %d tasks", parsed.ProjectName, len(parsed.Tasks)))
	return parsed, nil
}

// Refine proposes remediation tasks for the findings of a failed
// evaluation. The returned tasks use ids above every existing task id and
// merge into current without introducing cycles.
func (p *Planner) Refine(ctx context.Context, requirement string, current model.Plan, report model.EvaluationReport) ([]model.Task, error) {
	p.thought(fmt.Sprintf("Refining plan after evaluation score %d", report.Score))

	var sb strings.Builder
	fmt.Fprintf(&sb, "Requirement:\n%s\n\n", requirement)
	fmt.Fprintf(&sb, "Existing tasks:\n")
	for _, t := range current.Tasks {
		fmt.Fprintf(&sb, "- [%d] %s (%s)\n", t.ID, t.Title, t.Status)
	}
	fmt.Fprintf(&sb, "\nEvaluation findings (score %d):\n", report.Score)
	for _, f := range report.Findings {
		fmt.Fprintf(&sb, "- %s\n", f)
	}

	conversation := []llm.Message{
		llm.SystemMessage(plannerRefinePrompt),
		llm.UserMessage(sb.String()),
	}
	resp, err := completeWithRetry(ctx, p.client, conversation, nil, p.retries)
	if err != nil {
		return nil, &PlanningFailure{Transient: llm.Transient(err), Err: err}
	}

	tasks, err := parseRemediation([]byte(resp.Content))
	if err != nil {
		return nil, &PlanningFailure{Err: err}
	}

	// Renumber above the existing id space instead of trusting the model.
	nextID := maxTaskID(current) + 1
	for i := range tasks {
		if tasks[i].ID < nextID {
			tasks[i].ID = nextID
		}
		nextID = tasks[i].ID + 1
	}

	merged := current.Clone()
	merged.Tasks = append(merged.Tasks, tasks...)
	if err := plan.Validate(merged); err != nil {
		return nil, &PlanningFailure{Err: fmt.Errorf("remediation tasks do not merge: %w", err)}
	}
	p.thought(fmt.Sprintf("Proposed %d remediation tasks", len(tasks)))
	return tasks, nil
}

type taskDoc struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	TargetPath   string `json:"target_path"`
	Dependencies []int  `json:"dependencies"`
	Critical     *bool  `json:"critical"`
}

type planDoc struct {
	ProjectName       string    `json:"project_name"`
	ArchitectureNotes string    `json:"architecture_notes"`
	Tasks             []taskDoc `json:"tasks"`
}

func parsePlan(raw []byte) (model.Plan, error) {
	doc, ok := extractJSON(raw)
	if !ok {
		return model.Plan{}, fmt.Errorf("response contains no JSON object")
	}
	if err := validateAgainst(planSchema, doc); err != nil {
		return model.Plan{}, err
	}
	var pd planDoc
	if err := json.Unmarshal(doc, &pd); err != nil {
		return model.Plan{}, fmt.Errorf("unmarshal plan: %w", err)
	}
	out := model.Plan{
		ProjectName:       pd.ProjectName,
		ArchitectureNotes: pd.ArchitectureNotes,
		Tasks:             toTasks(pd.Tasks),
	}
	return out, nil
}

func parseRemediation(raw []byte) ([]model.Task, error) {
	doc, ok := extractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("response contains no JSON object")
	}
	if err := validateAgainst(remediationSchema, doc); err != nil {
		return nil, err
	}
	var rd struct {
		Tasks []taskDoc `json:"tasks"`
	}
	if err := json.Unmarshal(doc, &rd); err != nil {
		return nil, fmt.Errorf("unmarshal remediation tasks: %w", err)
	}
	return toTasks(rd.Tasks), nil
}

func toTasks(docs []taskDoc) []model.Task {
	tasks := make([]model.Task, 0, len(docs))
	for _, d := range docs {
		// Tasks are critical unless the planner says otherwise.
		critical := true
		if d.Critical != nil {
			critical = *d.Critical
		}
		tasks = append(tasks, model.Task{
			ID:           d.ID,
			Title:        d.Title,
			Description:  d.Description,
			TargetPath:   d.TargetPath,
			Dependencies: d.Dependencies,
			Status:       model.StatusPending,
			Critical:     critical,
		})
	}
	return tasks
}

func maxTaskID(p model.Plan) int {
	max := 0
	for _, t := range p.Tasks {
		if t.ID > max {
			max = t.ID
		}
	}
	return max
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i != -1 {
		return s[:i]
	}
	return s
}
