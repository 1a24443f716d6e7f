package core

// TaskStatus tracks a workflow task through the scheduling lifecycle.
type TaskStatus string

const (
	// TaskPending means at least one dependency is not DONE yet.
	TaskPending TaskStatus = "pending"
	// TaskReady means all dependencies are DONE and the task awaits an agent.
	TaskReady TaskStatus = "ready"
	// TaskAssigned means a goal-assigned message was published for the task.
	TaskAssigned TaskStatus = "assigned"
	// TaskRunning means the assigned agent reported it started executing.
	TaskRunning TaskStatus = "running"
	// TaskDone means the task completed successfully.
	TaskDone TaskStatus = "done"
	// TaskFailed means the task exhausted its retry budget.
	TaskFailed TaskStatus = "failed"
	// TaskCancelled means the task never ran because its workflow terminated.
	TaskCancelled TaskStatus = "cancelled"
)

// Terminal reports whether a task in this status will never be scheduled again.
func (s TaskStatus) Terminal() bool {
	return s == TaskDone || s == TaskFailed || s == TaskCancelled
}

// WorkflowStatus is the overall status of a submitted workflow.
type WorkflowStatus string

const (
	// WorkflowRunning means the workflow has unsettled tasks.
	WorkflowRunning WorkflowStatus = "running"
	// WorkflowSucceeded means every task reached DONE.
	WorkflowSucceeded WorkflowStatus = "succeeded"
	// WorkflowFailed means a task exhausted retries or the workflow was cancelled.
	WorkflowFailed WorkflowStatus = "failed"
)

// Terminal reports whether the workflow has settled.
func (s WorkflowStatus) Terminal() bool {
	return s == WorkflowSucceeded || s == WorkflowFailed
}
