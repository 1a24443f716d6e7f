// Package collaborator defines the contract for external reasoning services
// that agent behaviors may consult while planning or executing a goal.
// Implementations for the OpenAI and Anthropic APIs live in subpackages; a
// scriptable Mock supports tests and offline examples.
package collaborator

import (
	"context"
	"errors"
	"sync"
)

// Request is a single completion request. System sets the instruction frame,
// Prompt carries the task-specific input.
type Request struct {
	System string
	Prompt string
}

// Response is the completion result.
type Response struct {
	Text string
	// Model identifies the backend that produced the text.
	Model string
}

// Collaborator produces a completion for a request. Implementations must be
// safe for concurrent use; behaviors of different agents may share one.
type Collaborator interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// ErrScriptExhausted is returned by Mock once all scripted results are consumed.
var ErrScriptExhausted = errors.New("mock collaborator script exhausted")

// MockResult scripts one Mock reply. A non-nil Err is returned instead of the text.
type MockResult struct {
	Text string
	Err  error
}

// Mock replays scripted results in order and records the requests it saw.
type Mock struct {
	mu       sync.Mutex
	script   []MockResult
	next     int
	requests []Request
}

// NewMock builds a mock collaborator that replays the given results.
func NewMock(script ...MockResult) *Mock {
	return &Mock{script: script}
}

// Complete returns the next scripted result.
func (m *Mock) Complete(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.next >= len(m.script) {
		return Response{}, ErrScriptExhausted
	}

	result := m.script[m.next]
	m.next++
	if result.Err != nil {
		return Response{}, result.Err
	}

	return Response{Text: result.Text, Model: "mock"}, nil
}

// Requests returns the requests received so far.
func (m *Mock) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}
