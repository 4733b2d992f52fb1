package plan

import (
	"fmt"

	"github.com/sitesmith/sitesmith/internal/model"
)

// InvalidTransitionError reports a task status transition outside the state
// machine. It indicates a programming error in the control loop and is
// always fatal.
type InvalidTransitionError struct {
	TaskID int
	From   model.TaskStatus
	To     model.TaskStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("task %d: invalid transition %s -> %s", e.TaskID, e.From, e.To)
}

// allowed enumerates the task state machine:
// Pending/Ready -> InProgress -> {Completed, Failed}, plus Failed -> Ready
// as the explicit retry re-queue.
var allowed = map[model.TaskStatus]map[model.TaskStatus]bool{
	model.StatusPending:    {model.StatusReady: true, model.StatusInProgress: true},
	model.StatusReady:      {model.StatusInProgress: true},
	model.StatusInProgress: {model.StatusCompleted: true, model.StatusFailed: true},
	model.StatusFailed:     {model.StatusReady: true},
}

// Mark returns a copy of the plan with the given task transitioned. The
// result is attached only on a transition to Completed.
func Mark(p model.Plan, taskID int, status model.TaskStatus, result *model.TaskResult) (model.Plan, error) {
	out := p.Clone()
	task := out.Task(taskID)
	if task == nil {
		return model.Plan{}, fmt.Errorf("task %d not in plan", taskID)
	}
	if !allowed[task.Status][status] {
		return model.Plan{}, &InvalidTransitionError{TaskID: taskID, From: task.Status, To: status}
	}
	task.Status = status
	if status == model.StatusCompleted {
		task.Result = result
	}
	return out, nil
}
