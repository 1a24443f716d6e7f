// Package registry maintains the capability index over registered agents
// and linearizes task assignment: the orchestrator acquires an agent for a
// capability and releases it when the agent reports back, so no two tasks
// are ever assigned to the same idle agent concurrently.
package registry
