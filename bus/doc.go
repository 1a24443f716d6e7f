// Package bus implements the TaskMesh message bus: a topic-less
// publish/subscribe channel carrying typed control messages between agents
// and the orchestrator, with a bounded in-memory history.
//
// The bus is a signaling medium only. Bulk data exchange goes through the
// blackboard package; the bus carries goal assignments, completion reports
// and assistance broadcasts.
package bus
