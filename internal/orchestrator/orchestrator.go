// Package orchestrator drives a requirement through planning, task
// execution, and evaluation until the artifact set passes or a budget runs
// out.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sitesmith/sitesmith/internal/agents"
	"github.com/sitesmith/sitesmith/internal/config"
	"github.com/sitesmith/sitesmith/internal/journal"
	"github.com/sitesmith/sitesmith/internal/model"
	"github.com/sitesmith/sitesmith/internal/plan"
	"github.com/sitesmith/sitesmith/internal/protocol"
	"github.com/sitesmith/sitesmith/internal/state"
)

// Phase is the orchestrator's control-loop state.
type Phase string

const (
	PhaseInit       Phase = "init"
	PhasePlanning   Phase = "planning"
	PhaseScheduling Phase = "scheduling"
	PhaseDispatch   Phase = "dispatch"
	PhaseEvaluating Phase = "evaluating"
	PhaseRefining   Phase = "refining"
	PhaseDone       Phase = "done"
	PhaseAborted    Phase = "aborted"
)

// DeadlockError reports that no task is ready yet unfinished tasks remain.
// With a validated acyclic plan this can only follow from a control-loop
// bug, so the run aborts rather than spins.
type DeadlockError struct {
	Remaining []int
}

func (e *DeadlockError) Error() string {
	return fmt.Sprintf("no ready tasks but tasks %v are unfinished", e.Remaining)
}

// TaskRetriesExhausted reports that a task failed on every allowed attempt.
type TaskRetriesExhausted struct {
	TaskID   int
	Attempts int
	Err      error
}

func (e *TaskRetriesExhausted) Error() string {
	return fmt.Sprintf("task %d failed after %d attempts: %v", e.TaskID, e.Attempts, e.Err)
}

func (e *TaskRetriesExhausted) Unwrap() error { return e.Err }

type planner interface {
	Plan(ctx context.Context, requirement string) (model.Plan, error)
	Refine(ctx context.Context, requirement string, current model.Plan, report model.EvaluationReport) ([]model.Task, error)
}

type generator interface {
	Execute(ctx context.Context, assignment protocol.TaskAssignment) (model.TaskResult, error)
}

type evaluator interface {
	Evaluate(ctx context.Context, requirement string, req protocol.EvaluationRequest) (model.EvaluationReport, error)
}

// Recorder is the journal surface the orchestrator writes its timeline to.
type Recorder interface {
	CreateRun(ctx context.Context, runID, requirement, outputDir string) error
	AppendEvent(ctx context.Context, runID, phase string, iteration int, ev journal.Event) error
	FinishRun(ctx context.Context, runID, status, phase string, score *int) error
}

// Result is the outcome of a run.
type Result struct {
	RunID  string
	Phase  Phase
	State  *state.ProjectState
	Report *model.EvaluationReport
}

// Orchestrator owns the project state and sequences the agent adapters.
// Agents never touch the state; everything they learn or produce arrives
// through protocol messages the orchestrator folds in.
type Orchestrator struct {
	cfg       config.Config
	planner   planner
	generator generator
	evaluator evaluator
	store     *state.Store
	recorder  Recorder

	runID     string
	phase     Phase
	iteration int
	attempts  map[int]int
	st        *state.ProjectState
}

// New assembles an orchestrator. recorder may be nil to skip journaling.
func New(cfg config.Config, p planner, g generator, e evaluator, store *state.Store, recorder Recorder) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		planner:   p,
		generator: g,
		evaluator: e,
		store:     store,
		recorder:  recorder,
		phase:     PhaseInit,
	}
}

// Phase returns the current control-loop phase.
func (o *Orchestrator) Phase() Phase {
	return o.phase
}

// RecordThought files an agent thought into the active run's memory for
// the given role. It is a no-op outside a run; adapters call it through
// their ThoughtFunc instead of touching the state directly.
func (o *Orchestrator) RecordThought(role protocol.Role, thought string) {
	if o.st == nil {
		return
	}
	o.st.RecordThought(role, thought)
}

// Run executes the full loop for one requirement. The returned state is
// always the last durable snapshot, whatever the outcome.
func (o *Orchestrator) Run(ctx context.Context, requirement string) (Result, error) {
	o.runID = uuid.NewString()
	o.phase = PhaseInit
	o.iteration = 0
	o.attempts = make(map[int]int)

	st, err := o.store.Load()
	if err != nil {
		if !errors.Is(err, state.ErrNotFound) {
			return Result{RunID: o.runID, Phase: PhaseAborted}, fmt.Errorf("load snapshot: %w", err)
		}
		st = state.New()
	}
	o.st = st

	if o.recorder != nil {
		if err := o.recorder.CreateRun(ctx, o.runID, requirement, o.cfg.OutputDir); err != nil {
			log.Warn().Err(err).Msg("journal: create run")
			o.recorder = nil
		}
	}
	log.Info().Str("run_id", o.runID).Str("requirement", firstLine(requirement)).Msg("run started")

	if st.Plan == nil {
		if err := o.planPhase(ctx, st, requirement); err != nil {
			return o.abort(ctx, st, "planning_failed", err)
		}
	} else {
		// A task interrupted mid-dispatch never produced a result, so it
		// goes back on the queue.
		for i, task := range st.Plan.Tasks {
			if task.Status == model.StatusInProgress {
				st.Plan.Tasks[i].Status = model.StatusReady
			}
		}
		o.event(ctx, "plan_resumed", fmt.Sprintf("resuming plan %q with %d completed task(s)", st.Plan.ProjectName, len(st.CompletedTasks)))
		log.Info().Str("project", st.Plan.ProjectName).Int("completed", len(st.CompletedTasks)).Msg("resuming from snapshot")
	}

	for {
		done, err := o.executePhase(ctx, st)
		if err != nil {
			return o.abort(ctx, st, failureCondition(err), err)
		}
		if !done {
			continue
		}

		report, err := o.evaluatePhase(ctx, st, requirement)
		if err != nil {
			return o.abort(ctx, st, "evaluation_failed", err)
		}

		switch report.Verdict {
		case model.VerdictPass:
			return o.finish(ctx, st, report)
		case model.VerdictFail:
			return o.abort(ctx, st, "evaluation_fail_verdict",
				fmt.Errorf("evaluation verdict fail with score %d", report.Score))
		case model.VerdictRefine:
			o.iteration++
			if o.iteration >= o.cfg.Budgets.MaxIterations {
				return o.abort(ctx, st, "iterations_exhausted",
					fmt.Errorf("score %d after %d iteration(s)", report.Score, o.iteration))
			}
			if err := o.refinePhase(ctx, st, requirement, report); err != nil {
				return o.abort(ctx, st, "refinement_failed", err)
			}
		}
	}
}

// planPhase obtains a validated plan, falling back to the built-in plan on
// a structural planning failure. Transient failures abort the run.
func (o *Orchestrator) planPhase(ctx context.Context, st *state.ProjectState, requirement string) error {
	o.setPhase(ctx, PhasePlanning, "planning requirement")

	msg, err := protocol.Compose(protocol.TypePlanRequest, protocol.RoleOrchestrator, protocol.RolePlanningAgent,
		&protocol.PlanRequest{Requirement: requirement})
	if err != nil {
		return fmt.Errorf("compose plan request: %w", err)
	}
	st.RecordMessage(protocol.RolePlanningAgent, msg)

	fallback := false
	p, err := o.planner.Plan(ctx, requirement)
	if err != nil {
		var pf *agents.PlanningFailure
		if !errors.As(err, &pf) || pf.Transient {
			return err
		}
		// Malformed or invalid plan: continue with the built-in fallback
		// instead of burning another attempt.
		log.Warn().Err(err).Msg("planner output unusable, using fallback plan")
		st.RecordThought(protocol.RoleOrchestrator, "Planning output unusable, continuing with fallback plan")
		p = agents.FallbackPlan()
		fallback = true
	}

	resp, err := protocol.Compose(protocol.TypePlanResponse, protocol.RolePlanningAgent, protocol.RoleOrchestrator,
		&protocol.PlanResponse{Plan: p, Fallback: fallback})
	if err != nil {
		return fmt.Errorf("compose plan response: %w", err)
	}
	st.RecordMessage(protocol.RolePlanningAgent, resp)

	st.Plan = &p
	o.event(ctx, "plan_accepted", fmt.Sprintf("plan %q with %d tasks (fallback=%t)", p.ProjectName, len(p.Tasks), fallback))
	log.Info().Str("project", p.ProjectName).Int("tasks", len(p.Tasks)).Bool("fallback", fallback).Msg("plan accepted")
	return o.save(st)
}

// executePhase runs one scheduling round: dispatch every currently ready
// task in ascending id order. It reports done=true once no unfinished task
// remains.
func (o *Orchestrator) executePhase(ctx context.Context, st *state.ProjectState) (bool, error) {
	o.setPhase(ctx, PhaseScheduling, "computing ready tasks")

	satisfied := st.CompletedSet()
	for id := range o.skippedTasks(st) {
		satisfied[id] = true
	}
	ready := plan.ReadyTasks(*st.Plan, satisfied)
	if len(ready) == 0 {
		if remaining := unfinishedTasks(*st.Plan); len(remaining) > 0 {
			return false, &DeadlockError{Remaining: remaining}
		}
		return true, nil
	}

	o.phase = PhaseDispatch
	for _, task := range ready {
		if err := o.dispatchTask(ctx, st, task); err != nil {
			return false, err
		}
	}
	return false, nil
}

// dispatchTask executes one task via the generator, folding the result or
// applying the retry policy on failure.
func (o *Orchestrator) dispatchTask(ctx context.Context, st *state.ProjectState, task model.Task) error {
	if task.Status == model.StatusPending {
		if err := o.mark(st, task.ID, model.StatusReady, nil); err != nil {
			return err
		}
	}
	if err := o.mark(st, task.ID, model.StatusInProgress, nil); err != nil {
		return err
	}

	assignment := &protocol.TaskAssignment{
		Task: task,
		Context: protocol.TaskContext{
			ProjectName:       st.Plan.ProjectName,
			ArchitectureNotes: st.Plan.ArchitectureNotes,
			RecentTasks:       st.RecentTasks(3),
			RecentArtifacts:   st.RecentArtifacts(10),
		},
	}
	msg, err := protocol.Compose(protocol.TypeTaskAssignment, protocol.RoleOrchestrator, protocol.RoleCodeGenerationAgent, assignment)
	if err != nil {
		return fmt.Errorf("compose task assignment: %w", err)
	}
	st.RecordMessage(protocol.RoleCodeGenerationAgent, msg)
	o.event(ctx, "task_started", fmt.Sprintf("task %d: %s", task.ID, task.Title))
	log.Info().Int("task", task.ID).Str("title", task.Title).Msg("dispatching task")

	res, execErr := o.generator.Execute(ctx, *assignment)
	if execErr != nil {
		return o.handleTaskFailure(ctx, st, task, execErr)
	}

	if err := o.mark(st, task.ID, model.StatusCompleted, &res); err != nil {
		return err
	}
	st.FoldResult(res)

	resMsg, err := protocol.Compose(protocol.TypeTaskResult, protocol.RoleCodeGenerationAgent, protocol.RoleOrchestrator,
		&protocol.TaskResult{Result: res})
	if err != nil {
		return fmt.Errorf("compose task result: %w", err)
	}
	st.RecordMessage(protocol.RoleCodeGenerationAgent, resMsg)

	o.event(ctx, "task_completed", fmt.Sprintf("task %d produced %d artifact(s)", task.ID, len(res.ArtifactPaths)))
	log.Info().Int("task", task.ID).Strs("artifacts", res.ArtifactPaths).Msg("task completed")
	return o.save(st)
}

// handleTaskFailure applies the retry policy: re-queue while attempts
// remain, then abort for critical tasks or skip otherwise.
func (o *Orchestrator) handleTaskFailure(ctx context.Context, st *state.ProjectState, task model.Task, execErr error) error {
	if err := o.mark(st, task.ID, model.StatusFailed, nil); err != nil {
		return err
	}

	failMsg, err := protocol.Compose(protocol.TypeTaskResult, protocol.RoleCodeGenerationAgent, protocol.RoleOrchestrator,
		&protocol.TaskResult{Result: model.TaskResult{TaskID: task.ID}, Failed: true, Reason: execErr.Error()})
	if err != nil {
		return fmt.Errorf("compose task failure: %w", err)
	}
	st.RecordMessage(protocol.RoleCodeGenerationAgent, failMsg)

	o.attempts[task.ID]++
	attempts := o.attempts[task.ID]
	log.Warn().Err(execErr).Int("task", task.ID).Int("attempt", attempts).Msg("task failed")

	if attempts < o.cfg.Budgets.RetryLimit {
		if err := o.mark(st, task.ID, model.StatusReady, nil); err != nil {
			return err
		}
		o.event(ctx, "task_retry", fmt.Sprintf("task %d re-queued, attempt %d of %d", task.ID, attempts+1, o.cfg.Budgets.RetryLimit))
		return o.save(st)
	}

	exhausted := &TaskRetriesExhausted{TaskID: task.ID, Attempts: attempts, Err: execErr}
	if task.Critical {
		return exhausted
	}

	// Non-critical tasks are abandoned in Failed state. Their dependents
	// run without the artifact.
	st.RecordThought(protocol.RoleOrchestrator,
		fmt.Sprintf("Skipping non-critical task %d after %d failed attempts", task.ID, attempts))
	o.event(ctx, "task_skipped", fmt.Sprintf("task %d skipped: %v", task.ID, execErr))
	log.Warn().Int("task", task.ID).Msg("non-critical task skipped")
	return o.save(st)
}

// evaluatePhase scores the artifact set and applies the verdict policy.
func (o *Orchestrator) evaluatePhase(ctx context.Context, st *state.ProjectState, requirement string) (model.EvaluationReport, error) {
	o.setPhase(ctx, PhaseEvaluating, "evaluating artifacts")

	req := &protocol.EvaluationRequest{ArtifactPaths: st.ArtifactPaths()}
	msg, err := protocol.Compose(protocol.TypeEvaluationRequest, protocol.RoleOrchestrator, protocol.RoleEvaluationAgent, req)
	if err != nil {
		return model.EvaluationReport{}, fmt.Errorf("compose evaluation request: %w", err)
	}
	st.RecordMessage(protocol.RoleEvaluationAgent, msg)

	report, err := o.evaluator.Evaluate(ctx, requirement, *req)
	if err != nil {
		return model.EvaluationReport{}, err
	}
	// The orchestrator owns the verdict policy; the evaluator's own verdict
	// is advisory.
	report.Verdict = o.verdictFor(report.Score)

	repMsg, err := protocol.Compose(protocol.TypeEvaluationReport, protocol.RoleEvaluationAgent, protocol.RoleOrchestrator,
		&protocol.EvaluationReport{Report: report})
	if err != nil {
		return model.EvaluationReport{}, fmt.Errorf("compose evaluation report: %w", err)
	}
	st.RecordMessage(protocol.RoleEvaluationAgent, repMsg)

	st.Evaluation = &report
	o.event(ctx, "evaluation_done", fmt.Sprintf("score %d, verdict %s", report.Score, report.Verdict))
	log.Info().Int("score", report.Score).Str("verdict", string(report.Verdict)).Msg("evaluation complete")
	return report, o.save(st)
}

// refinePhase asks the planner for remediation tasks and appends them to
// the plan for the next scheduling round.
func (o *Orchestrator) refinePhase(ctx context.Context, st *state.ProjectState, requirement string, report model.EvaluationReport) error {
	o.setPhase(ctx, PhaseRefining, fmt.Sprintf("refinement iteration %d", o.iteration))

	tasks, err := o.planner.Refine(ctx, requirement, *st.Plan, report)
	if err != nil {
		return err
	}
	next := st.Plan.Clone()
	next.Tasks = append(next.Tasks, tasks...)
	if err := plan.Validate(next); err != nil {
		return fmt.Errorf("refined plan invalid: %w", err)
	}
	st.Plan = &next

	o.event(ctx, "plan_refined", fmt.Sprintf("%d remediation task(s) added", len(tasks)))
	log.Info().Int("tasks", len(tasks)).Int("iteration", o.iteration).Msg("plan refined")
	return o.save(st)
}

func (o *Orchestrator) finish(ctx context.Context, st *state.ProjectState, report model.EvaluationReport) (Result, error) {
	o.phase = PhaseDone
	if err := o.save(st); err != nil {
		return Result{}, err
	}
	if o.recorder != nil {
		score := report.Score
		if err := o.recorder.FinishRun(ctx, o.runID, "completed", string(o.phase), &score); err != nil {
			log.Warn().Err(err).Msg("journal: finish run")
		}
	}
	log.Info().Str("run_id", o.runID).Int("score", report.Score).Msg("run completed")
	return Result{RunID: o.runID, Phase: PhaseDone, State: st, Report: &report}, nil
}

// abort records the failure in the snapshot, closes the journal entry, and
// surfaces the causing error.
func (o *Orchestrator) abort(ctx context.Context, st *state.ProjectState, condition string, cause error) (Result, error) {
	failedPhase := o.phase
	o.phase = PhaseAborted
	st.Failure = &state.Failure{
		Phase:     string(failedPhase),
		Condition: condition,
		Detail:    cause.Error(),
	}
	if err := o.save(st); err != nil {
		log.Error().Err(err).Msg("save failure snapshot")
	}
	if o.recorder != nil {
		var score *int
		if st.Evaluation != nil {
			s := st.Evaluation.Score
			score = &s
		}
		if err := o.recorder.FinishRun(ctx, o.runID, "aborted", string(failedPhase), score); err != nil {
			log.Warn().Err(err).Msg("journal: finish run")
		}
	}
	log.Error().Err(cause).Str("condition", condition).Str("phase", string(failedPhase)).Msg("run aborted")
	return Result{RunID: o.runID, Phase: PhaseAborted, State: st, Report: st.Evaluation}, cause
}

func (o *Orchestrator) verdictFor(score int) model.Verdict {
	switch {
	case score >= o.cfg.Evaluation.PassingThreshold:
		return model.VerdictPass
	case score >= o.cfg.Evaluation.RefineThreshold:
		return model.VerdictRefine
	default:
		return model.VerdictFail
	}
}

// mark applies one task transition to the owned plan.
func (o *Orchestrator) mark(st *state.ProjectState, taskID int, status model.TaskStatus, result *model.TaskResult) error {
	next, err := plan.Mark(*st.Plan, taskID, status, result)
	if err != nil {
		return err
	}
	st.Plan = &next
	return nil
}

func (o *Orchestrator) save(st *state.ProjectState) error {
	if err := o.store.Save(st); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

func (o *Orchestrator) setPhase(ctx context.Context, phase Phase, message string) {
	o.phase = phase
	o.event(ctx, "phase_"+string(phase), message)
}

func (o *Orchestrator) event(ctx context.Context, typ, message string) {
	if o.recorder == nil {
		return
	}
	ev := journal.Event{Type: typ, Message: message}
	if err := o.recorder.AppendEvent(ctx, o.runID, string(o.phase), o.iteration, ev); err != nil {
		log.Warn().Err(err).Str("type", typ).Msg("journal: append event")
	}
}

// skippedTasks returns ids of failed tasks that exhausted their retries.
func (o *Orchestrator) skippedTasks(st *state.ProjectState) map[int]bool {
	skipped := make(map[int]bool)
	for _, t := range st.Plan.Tasks {
		if t.Status == model.StatusFailed && o.attempts[t.ID] >= o.cfg.Budgets.RetryLimit {
			skipped[t.ID] = true
		}
	}
	return skipped
}

// unfinishedTasks returns ids of tasks that are neither completed nor
// terminally failed.
func unfinishedTasks(p model.Plan) []int {
	var ids []int
	for _, t := range p.Tasks {
		if t.Status != model.StatusCompleted && t.Status != model.StatusFailed {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

func failureCondition(err error) string {
	var exhausted *TaskRetriesExhausted
	if errors.As(err, &exhausted) {
		return "task_retries_exhausted"
	}
	var deadlock *DeadlockError
	if errors.As(err, &deadlock) {
		return "scheduler_deadlock"
	}
	return "execution_failed"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i != -1 {
		return s[:i]
	}
	return s
}
