// Package plan validates task decompositions and drives the per-task state
// machine for the orchestrator.
package plan

import (
	"fmt"
	"sort"

	"github.com/sitesmith/sitesmith/internal/model"
)

// CycleError reports a dependency cycle in a plan.
type CycleError struct {
	TaskIDs []int
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("plan dependency cycle through tasks %v", e.TaskIDs)
}

// DuplicateIDError reports a repeated task id in a plan.
type DuplicateIDError struct {
	TaskID int
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate task id %d in plan", e.TaskID)
}

// Validate checks that task ids are unique, dependencies resolve, and the
// dependency relation is acyclic. A cycle is a plan-validation failure, not
// a runtime condition.
func Validate(p model.Plan) error {
	byID := make(map[int]model.Task, len(p.Tasks))
	for _, t := range p.Tasks {
		if _, seen := byID[t.ID]; seen {
			return &DuplicateIDError{TaskID: t.ID}
		}
		byID[t.ID] = t
	}
	for _, t := range p.Tasks {
		for _, dep := range t.Dependencies {
			if _, ok := byID[dep]; !ok {
				return fmt.Errorf("task %d depends on unknown task %d", t.ID, dep)
			}
		}
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	color := make(map[int]int, len(p.Tasks))
	var stack []int

	var visit func(id int) *CycleError
	visit = func(id int) *CycleError {
		color[id] = visiting
		stack = append(stack, id)
		for _, dep := range byID[id].Dependencies {
			switch color[dep] {
			case visiting:
				return cycleFrom(stack, dep)
			case unvisited:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = done
		return nil
	}

	for _, t := range p.Tasks {
		if color[t.ID] == unvisited {
			stack = stack[:0]
			if cycle := visit(t.ID); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

func cycleFrom(stack []int, entry int) *CycleError {
	for i, id := range stack {
		if id == entry {
			return &CycleError{TaskIDs: append([]int(nil), stack[i:]...)}
		}
	}
	return &CycleError{TaskIDs: append([]int(nil), stack...)}
}

// ReadyTasks returns every pending or ready task whose full dependency set
// is contained in completed, ordered by ascending task id. The ordering is
// the scheduling policy: simple topological readiness with a deterministic
// tie-break so execution order is reproducible.
func ReadyTasks(p model.Plan, completed map[int]bool) []model.Task {
	var ready []model.Task
	for _, t := range p.Tasks {
		if t.Status != model.StatusPending && t.Status != model.StatusReady {
			continue
		}
		if depsMet(t, completed) {
			ready = append(ready, t)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].ID < ready[j].ID })
	return ready
}

func depsMet(t model.Task, completed map[int]bool) bool {
	for _, dep := range t.Dependencies {
		if !completed[dep] {
			return false
		}
	}
	return true
}
