package transform

import (
	"sort"

	"github.com/sheetbridge/sheetbridge/engine/source"
)

// TaskNode is a task positioned in the reconstructed hierarchy. ParentID is
// the source GUID of the nearest preceding task with a lower outline level,
// or empty for roots.
type TaskNode struct {
	Task     source.Task
	ParentID string
}

// BuildHierarchy sorts tasks by task index and reconstructs the parent
// tree from outline levels with an ancestor stack: for each task, ancestors
// at the same or deeper level are popped and the stack top (if any) becomes
// the parent. The returned order is parent-before-child and must be
// preserved by row loading.
func BuildHierarchy(tasks []source.Task) []TaskNode {
	sorted := make([]source.Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Index < sorted[j].Index
	})

	type ancestor struct {
		level int
		id    string
	}
	var stack []ancestor
	nodes := make([]TaskNode, 0, len(sorted))
	for _, task := range sorted {
		for len(stack) > 0 && stack[len(stack)-1].level >= task.OutlineLevel {
			stack = stack[:len(stack)-1]
		}
		parentID := ""
		if len(stack) > 0 {
			parentID = stack[len(stack)-1].id
		}
		nodes = append(nodes, TaskNode{Task: task, ParentID: parentID})
		stack = append(stack, ancestor{level: task.OutlineLevel, id: task.ID})
	}
	return nodes
}
