package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/taskmesh/blackboard"
	"github.com/hupe1980/taskmesh/bus"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// Options configures a Worker.
type Options struct {
	// Description documents the worker's purpose for status snapshots.
	Description string
	// InboxSize buffers messages forwarded from the bus.
	InboxSize int
	// WaitPollInterval is how often AwaitKey re-reads the blackboard.
	WaitPollInterval time.Duration
	// WaitTimeout bounds AwaitKey when the caller passes no explicit timeout.
	WaitTimeout time.Duration
	// StateListener observes every state transition. Used by tests.
	StateListener func(from, to core.AgentState)
	// Logger receives worker diagnostics.
	Logger logging.Logger
}

// Worker hosts a Behavior on its own goroutine and implements core.Agent.
// It processes exactly one goal at a time.
type Worker struct {
	id           string
	description  string
	capabilities []string
	behavior     Behavior

	bus   *bus.Bus
	board *blackboard.Blackboard

	mu      sync.Mutex
	state   core.AgentState
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	pending map[string]chan core.Message // correlation id -> data-response waiter

	memory *core.Memory
	inbox  chan core.Message

	waitPollInterval time.Duration
	waitTimeout      time.Duration
	stateListener    func(from, to core.AgentState)
	logger           *logging.MeshLogger
}

// New constructs a Worker with the given identity, declared capabilities and
// behavior. The worker must be connected (Connect) and started (Start)
// before it can receive goals.
func New(id string, capabilities []string, behavior Behavior, optFns ...func(o *Options)) *Worker {
	opts := Options{
		Description:      fmt.Sprintf("Agent %s", id),
		InboxSize:        64,
		WaitPollInterval: 20 * time.Millisecond,
		WaitTimeout:      10 * time.Second,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Worker{
		id:               id,
		description:      opts.Description,
		capabilities:     append([]string(nil), capabilities...),
		behavior:         behavior,
		state:            core.StateIdle,
		pending:          make(map[string]chan core.Message),
		memory:           &core.Memory{},
		inbox:            make(chan core.Message, opts.InboxSize),
		waitPollInterval: opts.WaitPollInterval,
		waitTimeout:      opts.WaitTimeout,
		stateListener:    opts.StateListener,
		logger:           logging.NewMeshLogger(opts.Logger).WithComponent("agent").WithAgent(id),
	}
}

// ID implements core.Agent.
func (w *Worker) ID() string { return w.id }

// Description returns the human readable purpose of the worker.
func (w *Worker) Description() string { return w.description }

// Capabilities implements core.Agent returning a copy of the declared set.
func (w *Worker) Capabilities() []string {
	return append([]string(nil), w.capabilities...)
}

// State implements core.Agent.
func (w *Worker) State() core.AgentState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Memory returns a snapshot of the worker's decision log.
func (w *Worker) Memory() []core.Decision { return w.memory.Snapshot() }

// Connect wires the worker to the bus and blackboard and subscribes it for
// directed messages. Must be called before Start.
func (w *Worker) Connect(b *bus.Bus, board *blackboard.Blackboard) error {
	if b == nil || board == nil {
		return errors.New("bus and blackboard must not be nil")
	}
	w.bus = b
	w.board = board
	return b.Subscribe(w.id, func(msg core.Message) {
		w.inbox <- msg
	})
}

// Start launches the worker's message loop. It returns an error when the
// worker is already running or was never connected.
func (w *Worker) Start(ctx context.Context) error {
	if w.bus == nil || w.board == nil {
		return fmt.Errorf("worker %s: not connected", w.id)
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("worker %s: already running", w.id)
	}
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.loop(ctx)

	return nil
}

// Stop unsubscribes the worker and terminates its message loop. A goal in
// flight is allowed to finish or fail; its result is then discarded upstream.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("worker %s: not running", w.id)
	}
	w.running = false
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	w.bus.Unsubscribe(w.id)
	cancel()
	<-done

	return nil
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-w.inbox:
			w.dispatch(ctx, msg)
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, msg core.Message) {
	switch msg.Type {
	case core.MessageGoalAssigned:
		w.handleGoalAssigned(ctx, msg)
	case core.MessageDataRequest:
		w.handleDataRequest(msg)
	case core.MessageDataResponse:
		w.routeDataResponse(msg)
	case core.MessageNeedAssistance:
		if payload, ok := msg.Payload.(core.AssistancePayload); ok && payload.AgentID != w.id {
			w.memory.RecordObservation(fmt.Sprintf("assistance requested by %s for %q", payload.AgentID, payload.Key))
		}
	default:
		w.logger.Debug("ignoring message", "type", msg.Type, "sender", msg.Sender)
	}
}

// handleGoalAssigned accepts the goal when IDLE, otherwise sends a busy
// rejection so the orchestrator requeues the task.
func (w *Worker) handleGoalAssigned(ctx context.Context, msg core.Message) {
	payload, ok := msg.Payload.(core.GoalPayload)
	if !ok {
		w.logger.Warn("goal-assigned with malformed payload", "sender", msg.Sender)
		return
	}
	goal := payload.Goal

	w.mu.Lock()
	if w.state != core.StateIdle {
		w.mu.Unlock()
		w.memory.RecordObservation(fmt.Sprintf("rejected goal %s: busy", goal.ID))
		w.publish(msg.Reply(core.MessageGoalFailed, w.id, core.ResultPayload{
			TaskID:   goal.ID,
			AgentID:  w.id,
			Rejected: true,
			Reason:   "agent busy",
		}))
		return
	}
	w.transitionLocked(core.StateThinking)
	w.mu.Unlock()

	// The message loop stays responsive (data requests, rejections) while
	// the goal is processed.
	go w.processGoal(ctx, msg, goal)
}

func (w *Worker) processGoal(ctx context.Context, msg core.Message, goal core.Goal) {
	logger := w.logger.WithTask(goal.ID)
	logger.Info("goal received", "description", goal.Description, "priority", goal.Priority)
	w.memory.RecordObservation(fmt.Sprintf("goal received: %s", goal.Description))

	if !goal.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, goal.Deadline)
		defer cancel()
	}

	plan, err := w.behavior.Plan(ctx, goal)
	if err != nil {
		w.memory.RecordOutcome(goal.Description, false, err.Error())
		w.setState(core.StateFailed)
		w.publish(msg.Reply(core.MessageGoalFailed, w.id, core.ResultPayload{
			TaskID:  goal.ID,
			AgentID: w.id,
			Reason:  fmt.Sprintf("planning failed: %v", err),
		}))
		w.setState(core.StateIdle)
		return
	}
	w.memory.RecordDecision(
		fmt.Sprintf("execute plan for: %s", goal.Description),
		fmt.Sprintf("generated %d actions", len(plan)),
	)

	w.setState(core.StateExecuting)
	w.publishStatus(goal.ID)

	execCtx := &Context{Context: ctx, worker: w, goal: goal, logger: logger}
	if err := w.behavior.Execute(execCtx, plan); err != nil {
		w.memory.RecordOutcome(goal.Description, false, err.Error())
		w.setState(core.StateFailed)
		w.publish(msg.Reply(core.MessageGoalFailed, w.id, core.ResultPayload{
			TaskID:  goal.ID,
			AgentID: w.id,
			Reason:  err.Error(),
		}))
		w.setState(core.StateIdle)
		return
	}

	w.memory.RecordOutcome(goal.Description, true, "")
	w.setState(core.StateCompleted)
	w.publish(msg.Reply(core.MessageGoalComplete, w.id, core.ResultPayload{
		TaskID:  goal.ID,
		AgentID: w.id,
	}))
	w.setState(core.StateIdle)
}

// handleDataRequest answers with the requested blackboard entry, if any.
func (w *Worker) handleDataRequest(msg core.Message) {
	payload, ok := msg.Payload.(core.DataRequestPayload)
	if !ok {
		return
	}
	response := core.DataResponsePayload{Key: payload.Key}
	if entry, err := w.board.Read(payload.Key); err == nil {
		response.Value = entry.Value
		response.Version = entry.Version
		response.Found = true
	}
	w.publish(msg.Reply(core.MessageDataResponse, w.id, response))
}

func (w *Worker) routeDataResponse(msg core.Message) {
	if msg.CorrelationID == "" {
		return
	}
	w.mu.Lock()
	ch, ok := w.pending[msg.CorrelationID]
	w.mu.Unlock()
	if ok {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (w *Worker) addPending(correlationID string) chan core.Message {
	ch := make(chan core.Message, 1)
	w.mu.Lock()
	w.pending[correlationID] = ch
	w.mu.Unlock()
	return ch
}

func (w *Worker) removePending(correlationID string) {
	w.mu.Lock()
	delete(w.pending, correlationID)
	w.mu.Unlock()
}

func (w *Worker) setState(next core.AgentState) {
	w.mu.Lock()
	w.transitionLocked(next)
	w.mu.Unlock()
}

func (w *Worker) transitionLocked(next core.AgentState) {
	prev := w.state
	w.state = next
	w.logger.Debug("state transition", "from", prev, "to", next)
	if w.stateListener != nil {
		w.stateListener(prev, next)
	}
}

// publishStatus announces the current state so the orchestrator can track
// ASSIGNED vs RUNNING tasks.
func (w *Worker) publishStatus(taskID string) {
	w.publish(core.NewMessage(core.MessageStatusUpdate, w.id, core.OrchestratorID, core.StatusPayload{
		AgentID: w.id,
		TaskID:  taskID,
		State:   w.State(),
	}))
}

func (w *Worker) publish(msg core.Message) {
	if err := w.bus.Publish(msg); err != nil {
		w.logger.Error("publish failed", "type", msg.Type, "error", err)
	}
}
