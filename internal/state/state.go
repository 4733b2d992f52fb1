// Package state holds the durable aggregate for a run: the plan, produced
// artifacts, per-agent memory, and the snapshot store that persists them.
package state

import (
	"fmt"
	"time"

	"github.com/sitesmith/sitesmith/internal/model"
	"github.com/sitesmith/sitesmith/internal/protocol"
)

// AgentMemory is the per-role accumulation of protocol traffic and free-text
// reasoning notes. Both sequences are append-only and never truncated during
// a run; capping for a reasoning-service context window is the adapter's
// concern.
type AgentMemory struct {
	ConversationHistory []protocol.Message `json:"conversation_history"`
	Thoughts            []string           `json:"thoughts"`
}

// Failure explains a terminal abort so the snapshot always accounts for why
// a run stopped.
type Failure struct {
	Phase     string `json:"phase"`
	Condition string `json:"condition"`
	Detail    string `json:"detail,omitempty"`
}

// ProjectState is the single durable aggregate for a run. The orchestrator
// is its sole mutator: agents return results that the orchestrator folds in.
type ProjectState struct {
	Plan           *model.Plan                    `json:"project_plan"`
	CompletedTasks []int                          `json:"completed_tasks"`
	CreatedFiles   map[string]string              `json:"created_files"`
	TaskResults    map[int]model.TaskResult       `json:"task_results"`
	Evaluation     *model.EvaluationReport        `json:"evaluation"`
	Agents         map[protocol.Role]*AgentMemory `json:"agents"`
	Failure        *Failure                       `json:"failure,omitempty"`
	LastUpdated    time.Time                      `json:"last_updated"`
}

// New returns an empty project state.
func New() *ProjectState {
	return &ProjectState{
		CompletedTasks: []int{},
		CreatedFiles:   map[string]string{},
		TaskResults:    map[int]model.TaskResult{},
		Agents:         map[protocol.Role]*AgentMemory{},
	}
}

// Memory returns the memory for a role, creating it on first contact.
func (s *ProjectState) Memory(role protocol.Role) *AgentMemory {
	if s.Agents == nil {
		s.Agents = map[protocol.Role]*AgentMemory{}
	}
	mem, ok := s.Agents[role]
	if !ok {
		mem = &AgentMemory{}
		s.Agents[role] = mem
	}
	return mem
}

// RecordMessage appends a protocol message to the role's conversation
// history. Persistence happens at the next Save.
func (s *ProjectState) RecordMessage(role protocol.Role, msg protocol.Message) {
	mem := s.Memory(role)
	mem.ConversationHistory = append(mem.ConversationHistory, msg)
}

// RecordThought appends a timestamped reasoning note to the role's memory.
func (s *ProjectState) RecordThought(role protocol.Role, thought string) {
	mem := s.Memory(role)
	stamped := fmt.Sprintf("[%s] %s", time.Now().UTC().Format(time.RFC3339), thought)
	mem.Thoughts = append(mem.Thoughts, stamped)
}

// FoldResult records a completed task's result and artifacts.
func (s *ProjectState) FoldResult(res model.TaskResult) {
	s.TaskResults[res.TaskID] = res
	s.CompletedTasks = append(s.CompletedTasks, res.TaskID)
	for _, path := range res.ArtifactPaths {
		s.CreatedFiles[path] = path
	}
}

// CompletedSet returns the completed task ids as a set for the scheduler.
func (s *ProjectState) CompletedSet() map[int]bool {
	out := make(map[int]bool, len(s.CompletedTasks))
	for _, id := range s.CompletedTasks {
		out[id] = true
	}
	return out
}

// RecentTasks returns the last n completed tasks in completion order,
// resolved against the plan. Used to build bounded context for adapters
// without replaying the whole history.
func (s *ProjectState) RecentTasks(n int) []model.Task {
	if s.Plan == nil || n <= 0 {
		return nil
	}
	start := len(s.CompletedTasks) - n
	if start < 0 {
		start = 0
	}
	var out []model.Task
	for _, id := range s.CompletedTasks[start:] {
		if t := s.Plan.Task(id); t != nil {
			out = append(out, *t)
		}
	}
	return out
}

// RecentArtifacts returns the last n artifact paths in creation order.
// Creation order is derived from task completion order, so it survives a
// snapshot round trip.
func (s *ProjectState) RecentArtifacts(n int) []string {
	if n <= 0 {
		return nil
	}
	var all []string
	for _, id := range s.CompletedTasks {
		if res, ok := s.TaskResults[id]; ok {
			all = append(all, res.ArtifactPaths...)
		}
	}
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all
}

// ArtifactPaths returns every created artifact path in creation order,
// deduplicated by first occurrence.
func (s *ProjectState) ArtifactPaths() []string {
	seen := make(map[string]bool, len(s.CreatedFiles))
	var out []string
	for _, id := range s.CompletedTasks {
		res, ok := s.TaskResults[id]
		if !ok {
			continue
		}
		for _, path := range res.ArtifactPaths {
			if !seen[path] {
				seen[path] = true
				out = append(out, path)
			}
		}
	}
	return out
}
