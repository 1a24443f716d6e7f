package core

import (
	"sync"
	"time"
)

// DecisionKind categorizes entries in an agent's memory log.
type DecisionKind string

const (
	// KindObservation records something the agent noticed about its inputs.
	KindObservation DecisionKind = "observation"
	// KindDecision records a choice the agent made while planning or executing.
	KindDecision DecisionKind = "decision"
	// KindOutcome records the result of an action or goal.
	KindOutcome DecisionKind = "outcome"
)

// Decision is one immutable entry in an agent's memory log.
type Decision struct {
	Time    time.Time    `json:"time"`
	Kind    DecisionKind `json:"kind"`
	Note    string       `json:"note"`
	Detail  string       `json:"detail,omitempty"`
	Success bool         `json:"success,omitempty"` // meaningful for outcomes only
}

// Memory is the append-only decision log owned by a single agent instance.
// It is inspectable by tests and diagnostics via Snapshot but never mutated
// externally. Safe for concurrent use.
type Memory struct {
	mu  sync.Mutex
	log []Decision
}

// RecordObservation appends an observation entry.
func (m *Memory) RecordObservation(note string) {
	m.append(Decision{Kind: KindObservation, Note: note})
}

// RecordDecision appends a decision entry with its reasoning.
func (m *Memory) RecordDecision(note, reasoning string) {
	m.append(Decision{Kind: KindDecision, Note: note, Detail: reasoning})
}

// RecordOutcome appends an outcome entry for an action or goal.
func (m *Memory) RecordOutcome(action string, success bool, detail string) {
	m.append(Decision{Kind: KindOutcome, Note: action, Detail: detail, Success: success})
}

func (m *Memory) append(d Decision) {
	d.Time = time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = append(m.log, d)
}

// Snapshot returns a defensive copy of the log in append order.
func (m *Memory) Snapshot() []Decision {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Decision, len(m.log))
	copy(out, m.log)
	return out
}

// Len returns the number of recorded entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.log)
}
