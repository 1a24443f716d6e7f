package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/taskmesh/blackboard"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// Context is handed to Behavior.Execute. It scopes blackboard access, memory
// recording and inter-agent data exchange to the goal being executed, and
// carries the goal deadline as its context.Context deadline.
type Context struct {
	context.Context
	worker *Worker
	goal   core.Goal
	logger *logging.MeshLogger
}

// Goal returns the goal being executed.
func (c *Context) Goal() core.Goal { return c.goal }

// Logger returns a logger scoped to this worker and task.
func (c *Context) Logger() logging.Logger { return c.logger }

// Read returns the blackboard entry for key or blackboard.ErrNotFound.
func (c *Context) Read(key string) (blackboard.Entry, error) {
	return c.worker.board.Read(key)
}

// ReadMany returns an atomic snapshot of the given keys.
func (c *Context) ReadMany(keys ...string) map[string]blackboard.Entry {
	return c.worker.board.ReadMany(keys...)
}

// Write posts a value to the blackboard owned by this worker.
func (c *Context) Write(key string, value any, tags ...string) (blackboard.Entry, error) {
	return c.worker.board.Write(key, value, c.worker.id, tags...)
}

// RecordObservation appends an observation to the worker's memory log.
func (c *Context) RecordObservation(note string) { c.worker.memory.RecordObservation(note) }

// RecordDecision appends a decision with reasoning to the worker's memory log.
func (c *Context) RecordDecision(note, reasoning string) {
	c.worker.memory.RecordDecision(note, reasoning)
}

// AwaitKey blocks until the key appears on the blackboard or the wait
// elapses. The worker transitions to WAITING, broadcasts need-assistance
// once, and polls the blackboard; on success it transitions back to
// EXECUTING and returns the entry. A timeout of zero uses the worker's
// configured default. On timeout or context cancellation the returned error
// fails the goal.
func (c *Context) AwaitKey(key string, timeout time.Duration) (blackboard.Entry, error) {
	if entry, err := c.worker.board.Read(key); err == nil {
		return entry, nil
	}

	if timeout <= 0 {
		timeout = c.worker.waitTimeout
	}

	c.worker.setState(core.StateWaiting)
	c.worker.publishStatus(c.goal.ID)
	c.worker.memory.RecordObservation(fmt.Sprintf("waiting for blackboard key %q", key))
	c.worker.publish(core.NewBroadcast(core.MessageNeedAssistance, c.worker.id, core.AssistancePayload{
		AgentID: c.worker.id,
		TaskID:  c.goal.ID,
		Key:     key,
		Reason:  "blackboard key missing",
	}))

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	poll := time.NewTicker(c.worker.waitPollInterval)
	defer poll.Stop()

	for {
		select {
		case <-c.Done():
			return blackboard.Entry{}, fmt.Errorf("awaiting key %q: %w", key, c.Err())
		case <-deadline.C:
			return blackboard.Entry{}, fmt.Errorf("awaiting key %q: wait of %s elapsed", key, timeout)
		case <-poll.C:
			if entry, err := c.worker.board.Read(key); err == nil {
				c.worker.setState(core.StateExecuting)
				c.worker.publishStatus(c.goal.ID)
				return entry, nil
			}
		}
	}
}

// RequestData asks another agent for a blackboard value over the bus and
// waits for the correlated data-response. Most behaviors should read the
// blackboard directly; RequestData exists for values the recipient computes
// on demand.
func (c *Context) RequestData(recipient, key string, timeout time.Duration) (core.DataResponsePayload, error) {
	if timeout <= 0 {
		timeout = c.worker.waitTimeout
	}

	correlationID := core.NewID()
	ch := c.worker.addPending(correlationID)
	defer c.worker.removePending(correlationID)

	msg := core.NewMessage(core.MessageDataRequest, c.worker.id, recipient, core.DataRequestPayload{Key: key})
	msg.CorrelationID = correlationID
	if err := c.worker.bus.Publish(msg); err != nil {
		return core.DataResponsePayload{}, err
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case <-c.Done():
		return core.DataResponsePayload{}, c.Err()
	case <-deadline.C:
		return core.DataResponsePayload{}, fmt.Errorf("data request for %q to %s timed out", key, recipient)
	case reply := <-ch:
		payload, ok := reply.Payload.(core.DataResponsePayload)
		if !ok {
			return core.DataResponsePayload{}, fmt.Errorf("malformed data response from %s", reply.Sender)
		}
		return payload, nil
	}
}
