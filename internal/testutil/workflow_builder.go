package testutil

import (
	"github.com/hupe1980/taskmesh/workflow"
)

// WorkflowBuilder provides a fluent helper for constructing workflow
// definitions in tests. Example:
//
//	def := NewWorkflowBuilder("pipeline").
//		Task("parse", "parsing").
//		Task("build", "building", "parse").
//		Build()
//
// Chain only the parts you need; sensible defaults are applied.
type WorkflowBuilder struct {
	id    string
	name  string
	tasks []workflow.TaskSpec
}

// NewWorkflowBuilder creates a builder with the given workflow name.
func NewWorkflowBuilder(name string) *WorkflowBuilder {
	return &WorkflowBuilder{id: "wf-" + name, name: name}
}

// ID overrides the auto-derived workflow id (chainable).
func (b *WorkflowBuilder) ID(id string) *WorkflowBuilder { b.id = id; return b }

// Task appends a task with the given id, capability and dependencies (chainable).
func (b *WorkflowBuilder) Task(id, capability string, dependsOn ...string) *WorkflowBuilder {
	b.tasks = append(b.tasks, workflow.TaskSpec{
		ID:          id,
		Description: "task " + id,
		Capability:  capability,
		DependsOn:   dependsOn,
	})
	return b
}

// PriorityTask appends a task with an explicit priority (chainable). Lower
// values are more urgent.
func (b *WorkflowBuilder) PriorityTask(id, capability string, priority int, dependsOn ...string) *WorkflowBuilder {
	b.tasks = append(b.tasks, workflow.TaskSpec{
		ID:          id,
		Description: "task " + id,
		Capability:  capability,
		Priority:    priority,
		DependsOn:   dependsOn,
	})
	return b
}

// Spec appends a fully specified task (chainable).
func (b *WorkflowBuilder) Spec(spec workflow.TaskSpec) *WorkflowBuilder {
	b.tasks = append(b.tasks, spec)
	return b
}

// Retries sets MaxRetries on the most recently added task (chainable).
func (b *WorkflowBuilder) Retries(n int) *WorkflowBuilder {
	if len(b.tasks) > 0 {
		b.tasks[len(b.tasks)-1].MaxRetries = n
	}
	return b
}

// Build constructs the workflow.Definition value.
func (b *WorkflowBuilder) Build() workflow.Definition {
	return workflow.Definition{ID: b.id, Name: b.name, Tasks: b.tasks}
}
