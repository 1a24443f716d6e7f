package core

import "time"

// AgentState enumerates the lifecycle states of an agent's private state
// machine. Only the agent itself transitions its state; other components
// observe it through the registry.
type AgentState string

const (
	// StateIdle means the agent is ready to accept a goal.
	StateIdle AgentState = "idle"
	// StateThinking means the agent is producing a plan for a goal.
	StateThinking AgentState = "thinking"
	// StateExecuting means the agent is running its plan.
	StateExecuting AgentState = "executing"
	// StateWaiting means the agent is blocked on a missing precondition,
	// typically an absent blackboard key.
	StateWaiting AgentState = "waiting"
	// StateCompleted is the terminal state for a successfully finished goal.
	// The agent returns to StateIdle immediately after reporting.
	StateCompleted AgentState = "completed"
	// StateFailed is the terminal state for a failed goal. The agent returns
	// to StateIdle immediately after reporting.
	StateFailed AgentState = "failed"
)

// Goal is a unit of work assigned to an agent by the orchestrator. It maps
// one-to-one to a workflow task attempt.
type Goal struct {
	ID          string         `json:"id"` // task id
	Description string         `json:"description"`
	Priority    int            `json:"priority"` // lower value = more urgent
	Context     map[string]any `json:"context,omitempty"`
	Deadline    time.Time      `json:"deadline"`
}

// Action is a single planned step. The kernel never interprets Params; they
// are consumed by the behavior that produced the plan.
type Action struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// Agent is the registry-facing view of a live agent: identity, declared
// capabilities and observable state. The goal-processing contract (plan and
// execute) lives in the agent package; the orchestrator only ever talks to
// agents over the message bus.
type Agent interface {
	ID() string
	Capabilities() []string
	State() AgentState
}
