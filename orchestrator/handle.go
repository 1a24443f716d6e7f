package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/taskmesh/core"
)

// ErrWorkflowCancelled is the terminal error of an externally cancelled workflow.
var ErrWorkflowCancelled = errors.New("workflow cancelled")

// Result is the terminal outcome of a workflow.
type Result struct {
	WorkflowID string
	Status     core.WorkflowStatus
	// FailedTaskID identifies the first task that exhausted its retries.
	// Empty on success and on external cancellation.
	FailedTaskID string
	// Err carries the failure reason. Nil on success.
	Err error
	// Retries maps task id to the number of retries consumed.
	Retries map[string]int
	// TaskStatuses maps task id to its final status.
	TaskStatuses map[string]core.TaskStatus
}

// Handle tracks a submitted workflow to completion.
type Handle struct {
	workflowID string
	done       chan struct{}
	once       sync.Once
	mu         sync.RWMutex
	result     Result
	cancelFn   func()
}

func newHandle(workflowID string, cancelFn func()) *Handle {
	return &Handle{workflowID: workflowID, done: make(chan struct{}), cancelFn: cancelFn}
}

// WorkflowID returns the id of the tracked workflow.
func (h *Handle) WorkflowID() string { return h.workflowID }

// Done returns a channel closed when the workflow reaches a terminal status.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Result returns the terminal result. Valid only after Done is closed; the
// zero Result is returned while the workflow is still running.
func (h *Handle) Result() Result {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.result
}

// Wait blocks until the workflow settles or the context is cancelled.
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-h.done:
		return h.Result(), nil
	}
}

// Cancel requests cancellation: no further assignments are dispatched and
// the workflow terminates as FAILED with ErrWorkflowCancelled. An agent
// already executing is allowed to finish; its result is discarded.
func (h *Handle) Cancel() {
	if h.cancelFn != nil {
		h.cancelFn()
	}
}

// complete records the result and closes Done exactly once.
func (h *Handle) complete(res Result) {
	h.once.Do(func() {
		h.mu.Lock()
		h.result = res
		h.mu.Unlock()
		close(h.done)
	})
}
