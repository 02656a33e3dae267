// Package queuegui holds presentation policies for the queue tree.
package queuegui

import "github.com/beamline-remote/hwr-client/internal/state"

// Collapse decides the collapsed flag a task node should have after a
// task state report. A node collapses when its task starts running and
// expands when the task finishes; ok is false when the flag should stay
// as it is.
func Collapse(taskState int, collapsed bool) (target, ok bool) {
	switch {
	case taskState == state.TaskRunning && !collapsed:
		return true, true
	case taskState >= state.TaskDone && collapsed:
		return false, true
	}
	return collapsed, false
}

// TaskUpdate returns the mutations for a task report. Nothing happens
// unless the node has a display entry and isTask is set; group and
// sample nodes report with a null index.
func TaskUpdate(view state.View, rec state.TaskRecord, isTask bool) []state.Mutation {
	if !isTask {
		return nil
	}
	collapsed, ok := view.Collapsed(rec.QueueID)
	if !ok {
		return nil
	}

	var ms []state.Mutation
	if target, change := Collapse(rec.State, collapsed); change {
		ms = append(ms, state.SetCollapsed{QueueID: rec.QueueID, Collapsed: target})
	}
	return append(ms, state.AddTaskResult{Record: rec})
}
