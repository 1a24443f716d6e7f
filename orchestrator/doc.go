// Package orchestrator resolves workflow DAGs into goal assignments. It owns
// the scheduling loop: computing ready tasks, acquiring capable agents
// through the registry, publishing goal assignments over the bus, applying
// task-level retry and timeout policy, and tracking every workflow to a
// terminal SUCCEEDED or FAILED status.
//
// Concurrency model: a single event-driven loop goroutine owns all workflow
// state. Bus messages, submissions, cancellations, assignment timeouts and a
// periodic re-scan tick are funneled into one command channel, so no
// additional locking is needed around DAG state and assignment of a given
// task is atomic: exactly one agent receives it.
package orchestrator
