// Package agents implements the planner, generator, and evaluator adapters
// over the reasoning service and the capability tools.
package agents

import "fmt"

// PlanningFailure reports that the planner could not produce a valid plan.
// Structural failures trigger the orchestrator's fallback plan.
type PlanningFailure struct {
	Transient bool
	Err       error
}

func (e *PlanningFailure) Error() string {
	return fmt.Sprintf("planning failed: %v", e.Err)
}

func (e *PlanningFailure) Unwrap() error { return e.Err }

// ExecutionFailure reports that the generator could not complete a task.
// The orchestrator decides whether to re-queue the task.
type ExecutionFailure struct {
	TaskID    int
	Transient bool
	Err       error
}

func (e *ExecutionFailure) Error() string {
	return fmt.Sprintf("task %d execution failed: %v", e.TaskID, e.Err)
}

func (e *ExecutionFailure) Unwrap() error { return e.Err }

// EvaluationFailure reports that the evaluator could not produce a report.
type EvaluationFailure struct {
	Transient bool
	Err       error
}

func (e *EvaluationFailure) Error() string {
	return fmt.Sprintf("evaluation failed: %v", e.Err)
}

func (e *EvaluationFailure) Unwrap() error { return e.Err }
