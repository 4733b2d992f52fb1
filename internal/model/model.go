// Package model defines the shared domain types for a sitesmith run.
package model

// TaskStatus is the lifecycle state of a planned task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusReady      TaskStatus = "ready"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// Task is a unit of planned work. Dependencies reference task ids that must
// be completed before this task may start.
type Task struct {
	ID           int         `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	TargetPath   string      `json:"target_path"`
	Dependencies []int       `json:"dependencies,omitempty"`
	Status       TaskStatus  `json:"status"`
	Result       *TaskResult `json:"result,omitempty"`
	// Critical tasks abort the run when their retries are exhausted.
	// Non-critical tasks (e.g. sample-data fetches) let the run proceed
	// without their artifact.
	Critical bool `json:"critical"`
}

// TaskResult names the artifacts produced by executing a task.
type TaskResult struct {
	TaskID        int      `json:"task_id"`
	ArtifactPaths []string `json:"artifact_paths,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

// Plan is the ordered task decomposition plus project-level metadata.
// The orchestrator owns the plan once created; agents receive read-only
// views.
type Plan struct {
	ProjectName       string `json:"project_name"`
	ArchitectureNotes string `json:"architecture_notes,omitempty"`
	Tasks             []Task `json:"tasks"`
}

// Clone returns a deep copy of the plan.
func (p Plan) Clone() Plan {
	out := p
	out.Tasks = make([]Task, len(p.Tasks))
	for i, t := range p.Tasks {
		out.Tasks[i] = t
		if len(t.Dependencies) > 0 {
			out.Tasks[i].Dependencies = append([]int(nil), t.Dependencies...)
		}
		if t.Result != nil {
			res := *t.Result
			res.ArtifactPaths = append([]string(nil), t.Result.ArtifactPaths...)
			out.Tasks[i].Result = &res
		}
	}
	return out
}

// Task returns the task with the given id, or nil.
func (p Plan) Task(id int) *Task {
	for i := range p.Tasks {
		if p.Tasks[i].ID == id {
			return &p.Tasks[i]
		}
	}
	return nil
}

// Verdict is the evaluator's categorical judgment driving the
// refine-or-stop decision.
type Verdict string

const (
	VerdictPass   Verdict = "pass"
	VerdictRefine Verdict = "refine"
	VerdictFail   Verdict = "fail"
)

// EvaluationReport is the evaluator's output over the artifact set.
type EvaluationReport struct {
	Score    int      `json:"score"`
	Findings []string `json:"findings"`
	Verdict  Verdict  `json:"verdict"`
}
