package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/sitesmith/sitesmith/internal/agents"
	"github.com/sitesmith/sitesmith/internal/config"
	"github.com/sitesmith/sitesmith/internal/model"
	"github.com/sitesmith/sitesmith/internal/protocol"
	"github.com/sitesmith/sitesmith/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlanner struct {
	plan        model.Plan
	planErr     error
	refineTasks []model.Task
	refineErr   error
	planCalls   int
	refineCalls int
}

func (f *fakePlanner) Plan(_ context.Context, _ string) (model.Plan, error) {
	f.planCalls++
	if f.planErr != nil {
		return model.Plan{}, f.planErr
	}
	return f.plan.Clone(), nil
}

func (f *fakePlanner) Refine(_ context.Context, _ string, _ model.Plan, _ model.EvaluationReport) ([]model.Task, error) {
	f.refineCalls++
	if f.refineErr != nil {
		return nil, f.refineErr
	}
	return f.refineTasks, nil
}

type fakeGenerator struct {
	order []int
	// failures maps task id to how many times it fails before succeeding;
	// -1 fails forever.
	failures map[int]int
	attempts map[int]int
}

func (f *fakeGenerator) Execute(_ context.Context, assignment protocol.TaskAssignment) (model.TaskResult, error) {
	id := assignment.Task.ID
	f.order = append(f.order, id)
	if f.attempts == nil {
		f.attempts = map[int]int{}
	}
	f.attempts[id]++
	if budget, ok := f.failures[id]; ok && (budget == -1 || f.attempts[id] <= budget) {
		return model.TaskResult{}, &agents.ExecutionFailure{TaskID: id, Err: errors.New("boom")}
	}
	return model.TaskResult{
		TaskID:        id,
		ArtifactPaths: []string{fmt.Sprintf("file-%d.html", id)},
		Notes:         "done",
	}, nil
}

type fakeEvaluator struct {
	scores []int
	err    error
	calls  int
}

func (f *fakeEvaluator) Evaluate(_ context.Context, _ string, _ protocol.EvaluationRequest) (model.EvaluationReport, error) {
	i := f.calls
	f.calls++
	if f.err != nil {
		return model.EvaluationReport{}, f.err
	}
	if i >= len(f.scores) {
		i = len(f.scores) - 1
	}
	return model.EvaluationReport{Score: f.scores[i], Findings: []string{"finding"}}, nil
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.LLM.Provider = "mock"
	return cfg
}

func testStore(t *testing.T) *state.Store {
	t.Helper()
	return state.NewStore(filepath.Join(t.TempDir(), "snapshot.json"))
}

func linearPlan() model.Plan {
	return model.Plan{
		ProjectName: "site",
		Tasks: []model.Task{
			{ID: 1, Title: "one", Status: model.StatusPending, Critical: true},
			{ID: 2, Title: "two", Dependencies: []int{1}, Status: model.StatusPending, Critical: true},
			{ID: 3, Title: "three", Dependencies: []int{2}, Status: model.StatusPending, Critical: true},
		},
	}
}

func TestRunDispatchesTasksInDependencyOrder(t *testing.T) {
	t.Parallel()

	planner := &fakePlanner{plan: linearPlan()}
	gen := &fakeGenerator{}
	eval := &fakeEvaluator{scores: []int{90}}
	store := testStore(t)

	orch := New(testConfig(), planner, gen, eval, store, nil)
	res, err := orch.Run(context.Background(), "build a site")
	require.NoError(t, err)

	assert.Equal(t, PhaseDone, res.Phase)
	assert.Equal(t, []int{1, 2, 3}, gen.order)
	assert.Equal(t, model.VerdictPass, res.Report.Verdict)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, loaded.CompletedTasks)
	for _, task := range loaded.Plan.Tasks {
		assert.Equal(t, model.StatusCompleted, task.Status)
	}
	assert.Nil(t, loaded.Failure)
}

func TestRunResumesFromSnapshotWithoutReplanning(t *testing.T) {
	t.Parallel()

	store := testStore(t)
	seeded := state.New()
	p := linearPlan()
	p.Tasks[0].Status = model.StatusCompleted
	p.Tasks[1].Status = model.StatusInProgress
	seeded.Plan = &p
	seeded.FoldResult(model.TaskResult{TaskID: 1, ArtifactPaths: []string{"file-1.html"}})
	require.NoError(t, store.Save(seeded))

	planner := &fakePlanner{plan: linearPlan()}
	gen := &fakeGenerator{}
	orch := New(testConfig(), planner, gen, &fakeEvaluator{scores: []int{90}}, store, nil)

	res, err := orch.Run(context.Background(), "build a site")
	require.NoError(t, err)
	assert.Equal(t, PhaseDone, res.Phase)
	assert.Equal(t, 0, planner.planCalls, "existing plan should survive a restart")
	assert.Equal(t, []int{2, 3}, gen.order, "completed tasks must not run again")
	assert.ElementsMatch(t, []int{1, 2, 3}, res.State.CompletedTasks)
}

func TestRunRecordsProtocolMessages(t *testing.T) {
	t.Parallel()

	planner := &fakePlanner{plan: linearPlan()}
	orch := New(testConfig(), planner, &fakeGenerator{}, &fakeEvaluator{scores: []int{90}}, testStore(t), nil)

	res, err := orch.Run(context.Background(), "build a site")
	require.NoError(t, err)

	planMem := res.State.Agents[protocol.RolePlanningAgent]
	require.NotNil(t, planMem)
	require.Len(t, planMem.ConversationHistory, 2)
	assert.Equal(t, protocol.TypePlanRequest, planMem.ConversationHistory[0].Type)
	assert.Equal(t, protocol.TypePlanResponse, planMem.ConversationHistory[1].Type)

	genMem := res.State.Agents[protocol.RoleCodeGenerationAgent]
	require.NotNil(t, genMem)
	assert.Len(t, genMem.ConversationHistory, 6, "assignment and result per task")

	evalMem := res.State.Agents[protocol.RoleEvaluationAgent]
	require.NotNil(t, evalMem)
	assert.Len(t, evalMem.ConversationHistory, 2)
}

func TestRunRetriesFailedTaskUntilSuccess(t *testing.T) {
	t.Parallel()

	planner := &fakePlanner{plan: linearPlan()}
	gen := &fakeGenerator{failures: map[int]int{2: 2}}
	orch := New(testConfig(), planner, gen, &fakeEvaluator{scores: []int{90}}, testStore(t), nil)

	res, err := orch.Run(context.Background(), "build a site")
	require.NoError(t, err)

	assert.Equal(t, PhaseDone, res.Phase)
	assert.Equal(t, 3, gen.attempts[2], "two failures then success")
	assert.Equal(t, model.StatusCompleted, res.State.Plan.Task(2).Status)
}

func TestRunAbortsWhenCriticalTaskExhaustsRetries(t *testing.T) {
	t.Parallel()

	planner := &fakePlanner{plan: linearPlan()}
	gen := &fakeGenerator{failures: map[int]int{2: -1}}
	store := testStore(t)
	orch := New(testConfig(), planner, gen, &fakeEvaluator{scores: []int{90}}, store, nil)

	res, err := orch.Run(context.Background(), "build a site")
	var exhausted *TaskRetriesExhausted
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, exhausted.TaskID)
	assert.Equal(t, 3, gen.attempts[2], "retry_limit attempts")
	assert.Equal(t, PhaseAborted, res.Phase)

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded.Failure)
	assert.Equal(t, "task_retries_exhausted", loaded.Failure.Condition)
	assert.NotContains(t, gen.order, 3, "dependent task never dispatched")
}

func TestRunSkipsExhaustedNonCriticalTask(t *testing.T) {
	t.Parallel()

	p := linearPlan()
	p.Tasks[0].Critical = false
	planner := &fakePlanner{plan: p}
	gen := &fakeGenerator{failures: map[int]int{1: -1}}
	orch := New(testConfig(), planner, gen, &fakeEvaluator{scores: []int{90}}, testStore(t), nil)

	res, err := orch.Run(context.Background(), "build a site")
	require.NoError(t, err)

	assert.Equal(t, PhaseDone, res.Phase)
	assert.Equal(t, model.StatusFailed, res.State.Plan.Task(1).Status)
	assert.Equal(t, model.StatusCompleted, res.State.Plan.Task(2).Status)
	assert.Equal(t, model.StatusCompleted, res.State.Plan.Task(3).Status)
}

func TestRunUsesFallbackPlanOnStructuralPlanningFailure(t *testing.T) {
	t.Parallel()

	planner := &fakePlanner{planErr: &agents.PlanningFailure{Err: errors.New("malformed json")}}
	gen := &fakeGenerator{}
	orch := New(testConfig(), planner, gen, &fakeEvaluator{scores: []int{90}}, testStore(t), nil)

	res, err := orch.Run(context.Background(), "build a site")
	require.NoError(t, err)

	assert.Equal(t, 1, planner.planCalls, "no second planning attempt")
	assert.Equal(t, agents.FallbackPlan().ProjectName, res.State.Plan.ProjectName)

	history := res.State.Agents[protocol.RolePlanningAgent].ConversationHistory
	require.Len(t, history, 2)
	response, ok := history[1].Payload.(*protocol.PlanResponse)
	require.True(t, ok)
	assert.True(t, response.Fallback)
}

func TestRunAbortsOnTransientPlanningFailure(t *testing.T) {
	t.Parallel()

	planner := &fakePlanner{planErr: &agents.PlanningFailure{Transient: true, Err: errors.New("timeout")}}
	orch := New(testConfig(), planner, &fakeGenerator{}, &fakeEvaluator{scores: []int{90}}, testStore(t), nil)

	res, err := orch.Run(context.Background(), "build a site")
	require.Error(t, err)
	assert.Equal(t, PhaseAborted, res.Phase)
	assert.Equal(t, "planning_failed", res.State.Failure.Condition)
}

func TestRunRefinesAndPassesOnSecondEvaluation(t *testing.T) {
	t.Parallel()

	planner := &fakePlanner{
		plan: linearPlan(),
		refineTasks: []model.Task{
			{ID: 4, Title: "fix styles", Status: model.StatusPending, Critical: true},
		},
	}
	gen := &fakeGenerator{}
	eval := &fakeEvaluator{scores: []int{55, 90}}
	orch := New(testConfig(), planner, gen, eval, testStore(t), nil)

	res, err := orch.Run(context.Background(), "build a site")
	require.NoError(t, err)

	assert.Equal(t, PhaseDone, res.Phase)
	assert.Equal(t, 1, planner.refineCalls)
	assert.Equal(t, 2, eval.calls)
	assert.Equal(t, []int{1, 2, 3, 4}, gen.order)
	assert.Equal(t, model.VerdictPass, res.Report.Verdict)
}

func TestRunAbortsWhenIterationBudgetExhausted(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Budgets.MaxIterations = 1
	planner := &fakePlanner{plan: linearPlan()}
	eval := &fakeEvaluator{scores: []int{55}}
	store := testStore(t)
	orch := New(cfg, planner, &fakeGenerator{}, eval, store, nil)

	res, err := orch.Run(context.Background(), "build a site")
	require.Error(t, err)
	assert.Equal(t, PhaseAborted, res.Phase)
	assert.Equal(t, 0, planner.refineCalls, "no refinement without iteration budget")

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "iterations_exhausted", loaded.Failure.Condition)
}

func TestRunAbortsOnFailVerdict(t *testing.T) {
	t.Parallel()

	planner := &fakePlanner{plan: linearPlan()}
	eval := &fakeEvaluator{scores: []int{20}}
	orch := New(testConfig(), planner, &fakeGenerator{}, eval, testStore(t), nil)

	res, err := orch.Run(context.Background(), "build a site")
	require.Error(t, err)
	assert.Equal(t, PhaseAborted, res.Phase)
	assert.Equal(t, "evaluation_fail_verdict", res.State.Failure.Condition)
	assert.Equal(t, model.VerdictFail, res.State.Evaluation.Verdict)
}

func TestRunDetectsSchedulerDeadlock(t *testing.T) {
	t.Parallel()

	stuck := model.Plan{
		ProjectName: "site",
		Tasks: []model.Task{
			{ID: 1, Title: "stuck", Status: model.StatusInProgress, Critical: true},
		},
	}
	planner := &fakePlanner{plan: stuck}
	orch := New(testConfig(), planner, &fakeGenerator{}, &fakeEvaluator{scores: []int{90}}, testStore(t), nil)

	res, err := orch.Run(context.Background(), "build a site")
	var deadlock *DeadlockError
	require.ErrorAs(t, err, &deadlock)
	assert.Equal(t, []int{1}, deadlock.Remaining)
	assert.Equal(t, "scheduler_deadlock", res.State.Failure.Condition)
}

func TestRunEvaluatesEmptyArtifactSet(t *testing.T) {
	t.Parallel()

	p := model.Plan{
		ProjectName: "site",
		Tasks:       []model.Task{{ID: 1, Title: "optional fetch", Status: model.StatusPending}},
	}
	planner := &fakePlanner{plan: p}
	gen := &fakeGenerator{failures: map[int]int{1: -1}}
	eval := &fakeEvaluator{scores: []int{80}}
	orch := New(testConfig(), planner, gen, eval, testStore(t), nil)

	res, err := orch.Run(context.Background(), "build a site")
	require.NoError(t, err)
	assert.Equal(t, PhaseDone, res.Phase)
	assert.Equal(t, 1, eval.calls, "skipping every task still reaches evaluation")
	assert.Empty(t, res.State.ArtifactPaths())
}

func TestVerdictThresholds(t *testing.T) {
	t.Parallel()

	orch := New(testConfig(), nil, nil, nil, nil, nil)
	assert.Equal(t, model.VerdictPass, orch.verdictFor(75))
	assert.Equal(t, model.VerdictRefine, orch.verdictFor(74))
	assert.Equal(t, model.VerdictRefine, orch.verdictFor(40))
	assert.Equal(t, model.VerdictFail, orch.verdictFor(39))
}
