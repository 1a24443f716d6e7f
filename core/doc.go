// Package core defines the shared vocabulary of the TaskMesh coordination
// kernel: messages exchanged over the bus, goals and actions handed to
// agents, agent and task state enumerations, and the append-only decision
// memory owned by each agent instance.
//
// The package is deliberately free of behavior beyond construction and
// validation helpers so that the bus, blackboard, registry, agent and
// orchestrator packages can all depend on it without cycles.
package core
