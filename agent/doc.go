// Package agent contains the Worker runtime that turns a domain Behavior
// (plan + execute) into a live autonomous agent: it subscribes to the message
// bus, runs the private state machine IDLE → THINKING → EXECUTING →
// {COMPLETED, FAILED} (with WAITING reachable from EXECUTING), keeps an
// append-only decision memory, and reports every goal outcome back to its
// assigner.
//
// Design principles:
//   - One goal at a time: a goal assigned while the worker is not IDLE is
//     rejected with a busy signal so the orchestrator can requeue it
//   - Behaviors touch the blackboard and external collaborators only through
//     the execution Context
//   - A worker never crashes its caller: every behavior failure becomes a
//     goal-failed message
package agent
