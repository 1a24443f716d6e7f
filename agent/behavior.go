package agent

import (
	"context"

	"github.com/hupe1980/taskmesh/core"
)

// Behavior is the polymorphic contract every domain agent supplies.
//
// Plan is pure decision-making: it must not write the blackboard or call
// external collaborators. A Plan error is a planning failure; the worker
// reports goal-failed without ever entering EXECUTING.
//
// Execute runs the planned actions in order. It may read and write the
// blackboard, call external collaborators and await missing preconditions
// through the provided Context. Returning a non-nil error fails the goal.
type Behavior interface {
	Plan(ctx context.Context, goal core.Goal) ([]core.Action, error)
	Execute(ctx *Context, plan []core.Action) error
}

// Funcs adapts plain functions to the Behavior interface. Nil fields fall
// back to a single no-op action and a successful execution, which keeps test
// and example wiring short.
type Funcs struct {
	PlanFn    func(ctx context.Context, goal core.Goal) ([]core.Action, error)
	ExecuteFn func(ctx *Context, plan []core.Action) error
}

// Plan implements Behavior.
func (f Funcs) Plan(ctx context.Context, goal core.Goal) ([]core.Action, error) {
	if f.PlanFn == nil {
		return []core.Action{{Name: "noop"}}, nil
	}
	return f.PlanFn(ctx, goal)
}

// Execute implements Behavior.
func (f Funcs) Execute(ctx *Context, plan []core.Action) error {
	if f.ExecuteFn == nil {
		return nil
	}
	return f.ExecuteFn(ctx, plan)
}
