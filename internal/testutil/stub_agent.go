package testutil

import (
	"sync"

	"github.com/hupe1980/taskmesh/core"
)

// StubAgent is a minimal core.Agent with a settable state, used to exercise
// the registry without running a worker goroutine.
type StubAgent struct {
	AgentID string
	Caps    []string

	mu    sync.Mutex
	state core.AgentState
}

// NewStubAgent creates an idle stub agent.
func NewStubAgent(id string, caps ...string) *StubAgent {
	return &StubAgent{AgentID: id, Caps: caps, state: core.StateIdle}
}

// ID implements core.Agent.
func (s *StubAgent) ID() string { return s.AgentID }

// Capabilities implements core.Agent.
func (s *StubAgent) Capabilities() []string { return s.Caps }

// State implements core.Agent.
func (s *StubAgent) State() core.AgentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState overrides the reported state.
func (s *StubAgent) SetState(state core.AgentState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}
