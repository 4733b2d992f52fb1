package plan

import (
	"testing"

	"github.com/sitesmith/sitesmith/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planOf(tasks ...model.Task) model.Plan {
	return model.Plan{ProjectName: "test", Tasks: tasks}
}

func task(id int, deps ...int) model.Task {
	return model.Task{ID: id, Title: "task", Dependencies: deps, Status: model.StatusPending}
}

func TestValidateAcceptsLinearChain(t *testing.T) {
	t.Parallel()

	p := planOf(task(1), task(2, 1), task(3, 2))
	require.NoError(t, Validate(p))
}

func TestValidateRejectsDuplicateIDs(t *testing.T) {
	t.Parallel()

	p := planOf(task(1), task(1))
	var dup *DuplicateIDError
	require.ErrorAs(t, Validate(p), &dup)
	assert.Equal(t, 1, dup.TaskID)
}

func TestValidateRejectsUnknownDependency(t *testing.T) {
	t.Parallel()

	p := planOf(task(1), task(2, 99))
	require.Error(t, Validate(p))
}

func TestValidateRejectsCycle(t *testing.T) {
	t.Parallel()

	p := planOf(task(1, 3), task(2, 1), task(3, 2))
	var cycle *CycleError
	require.ErrorAs(t, Validate(p), &cycle)
	assert.Len(t, cycle.TaskIDs, 3)
}

func TestValidateRejectsSelfDependency(t *testing.T) {
	t.Parallel()

	p := planOf(task(1, 1))
	var cycle *CycleError
	require.ErrorAs(t, Validate(p), &cycle)
	assert.Equal(t, []int{1}, cycle.TaskIDs)
}

func TestReadyTasksOrdersByAscendingID(t *testing.T) {
	t.Parallel()

	p := planOf(task(3), task(1), task(2))
	ready := ReadyTasks(p, map[int]bool{})
	ids := make([]int, 0, len(ready))
	for _, rt := range ready {
		ids = append(ids, rt.ID)
	}
	assert.Equal(t, []int{1, 2, 3}, ids)
}

func TestReadyTasksHonorsDependencies(t *testing.T) {
	t.Parallel()

	p := planOf(task(1), task(2, 1), task(3, 2))

	ready := ReadyTasks(p, map[int]bool{})
	require.Len(t, ready, 1)
	assert.Equal(t, 1, ready[0].ID)

	ready = ReadyTasks(p, map[int]bool{1: true})
	require.Len(t, ready, 1)
	assert.Equal(t, 2, ready[0].ID)

	ready = ReadyTasks(p, map[int]bool{1: true, 2: true})
	require.Len(t, ready, 1)
	assert.Equal(t, 3, ready[0].ID)
}

func TestReadyTasksSkipsTerminalStates(t *testing.T) {
	t.Parallel()

	done := task(1)
	done.Status = model.StatusCompleted
	failed := task(2)
	failed.Status = model.StatusFailed
	running := task(3)
	running.Status = model.StatusInProgress

	p := planOf(done, failed, running, task(4))
	ready := ReadyTasks(p, map[int]bool{1: true})
	require.Len(t, ready, 1)
	assert.Equal(t, 4, ready[0].ID)
}
