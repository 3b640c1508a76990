package policy

import (
	"fmt"

	"taskflow/internal/ident"
)

// MaxTaskDepth is the deepest a task may sit and still receive subtasks.
const MaxTaskDepth = 10

// TaskNode is the slice of a task the hierarchy rule needs.
type TaskNode struct {
	ID       ident.TaskID
	ParentID *ident.TaskID
}

// TaskHierarchy limits how deep subtasks may nest.
type TaskHierarchy struct {
	MaxDepth int
}

// DefaultHierarchy uses MaxTaskDepth.
var DefaultHierarchy = TaskHierarchy{MaxDepth: MaxTaskDepth}

// CalculateDepth counts parent hops from task to a parentless ancestor.
// A parent missing from all stops the count there; so does a cycle.
func CalculateDepth(task TaskNode, all []TaskNode) int {
	byID := make(map[ident.TaskID]TaskNode, len(all))
	for _, n := range all {
		byID[n.ID] = n
	}
	depth := 0
	seen := map[ident.TaskID]bool{task.ID: true}
	cur := task
	for cur.ParentID != nil {
		parent, ok := byID[*cur.ParentID]
		if !ok || seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		depth++
		cur = parent
	}
	return depth
}

func (p TaskHierarchy) max() int {
	if p.MaxDepth <= 0 {
		return MaxTaskDepth
	}
	return p.MaxDepth
}

// CanAddSubtask reports whether parent is shallow enough to receive a child.
func (p TaskHierarchy) CanAddSubtask(parent TaskNode, all []TaskNode) bool {
	return CalculateDepth(parent, all) < p.max()
}

func (p TaskHierarchy) AssertCanAddSubtask(parent TaskNode, all []TaskNode) error {
	depth := CalculateDepth(parent, all)
	if depth < p.max() {
		return nil
	}
	return violation("task hierarchy", []string{
		fmt.Sprintf("task %s is at depth %d; subtasks are limited to depth %d", parent.ID, depth, p.max()),
	})
}
