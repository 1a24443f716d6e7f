package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/taskmesh/bus"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/registry"
	"github.com/hupe1980/taskmesh/workflow"
)

// ErrNotRunning is returned when submitting to a stopped orchestrator.
var ErrNotRunning = errors.New("orchestrator is not running")

// ErrUnknownWorkflow is returned by Snapshot for an unknown workflow id.
var ErrUnknownWorkflow = errors.New("unknown workflow")

// Options configures an Orchestrator.
type Options struct {
	// RetryBudget is the default number of retries granted to a task whose
	// spec does not override it. A task therefore runs at most
	// RetryBudget+1 times.
	RetryBudget int
	// TaskTimeout is the execution deadline attached to each assignment.
	// A missing goal-complete/failed by the deadline counts as a failure.
	TaskTimeout time.Duration
	// TickInterval drives the periodic re-scan that retries dispatching
	// READY tasks left unassigned by capability scarcity or busy rejections.
	TickInterval time.Duration
	// WatchdogInterval bounds how long a READY task may sit without any
	// registered capable agent before a warning is logged.
	WatchdogInterval time.Duration
	// CommandBuffer sizes the internal command channel.
	CommandBuffer int
	// Logger receives scheduling diagnostics.
	Logger logging.Logger
}

type cmdKind int

const (
	cmdSubmit cmdKind = iota
	cmdMessage
	cmdTimeout
	cmdCancel
	cmdSnapshot
)

type command struct {
	kind       cmdKind
	def        workflow.Definition
	handle     *Handle
	msg        core.Message
	workflowID string
	taskID     string
	attemptID  string
	snapshotCh chan snapshotReply
}

type snapshotReply struct {
	snap Snapshot
	err  error
}

// Snapshot is a point-in-time view of a workflow used for status reporting.
type Snapshot struct {
	WorkflowID string
	Status     core.WorkflowStatus
	Tasks      map[string]core.TaskStatus
	Retries    map[string]int
}

type taskState struct {
	spec       workflow.TaskSpec
	status     core.TaskStatus
	seq        int // submission order, used for priority tie-breaking
	budget     int
	retries    int
	assignedTo string
	attemptID  string
	timer      *time.Timer
	readySince time.Time
	lastWarn   time.Time
	failReason string
}

type workflowState struct {
	def    workflow.Definition
	status core.WorkflowStatus
	tasks  map[string]*taskState
	order  []string
	handle *Handle
}

type taskRef struct {
	workflowID string
	taskID     string
}

// Orchestrator owns the registry, bus and scheduling state for all submitted
// workflows. Construct with New, then Start before submitting.
type Orchestrator struct {
	registry *registry.Registry
	bus      *bus.Bus

	retryBudget      int
	taskTimeout      time.Duration
	tickInterval     time.Duration
	watchdogInterval time.Duration
	commandBuffer    int

	commands  chan command
	loopDone  chan struct{}
	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	workflows map[string]*workflowState
	attempts  map[string]taskRef

	logger *logging.MeshLogger
}

// New constructs an Orchestrator over the given registry and bus.
func New(reg *registry.Registry, b *bus.Bus, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		RetryBudget:      2,
		TaskTimeout:      30 * time.Second,
		TickInterval:     100 * time.Millisecond,
		WatchdogInterval: 5 * time.Second,
		CommandBuffer:    256,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Orchestrator{
		registry:         reg,
		bus:              b,
		retryBudget:      opts.RetryBudget,
		taskTimeout:      opts.TaskTimeout,
		tickInterval:     opts.TickInterval,
		watchdogInterval: opts.WatchdogInterval,
		commandBuffer:    opts.CommandBuffer,
		workflows:        make(map[string]*workflowState),
		attempts:         make(map[string]taskRef),
		logger:           logging.NewMeshLogger(opts.Logger).WithComponent("orchestrator"),
	}
}

// Start subscribes the orchestrator to the bus and launches the scheduling loop.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running {
		return errors.New("orchestrator already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.commands = make(chan command, o.commandBuffer)
	o.loopDone = make(chan struct{})
	o.running = true

	if err := o.bus.Subscribe(core.OrchestratorID, func(msg core.Message) {
		o.post(command{kind: cmdMessage, msg: msg})
	}); err != nil {
		o.running = false
		cancel()
		return fmt.Errorf("failed to subscribe orchestrator: %w", err)
	}

	go o.loop(ctx)

	return nil
}

// Stop terminates the scheduling loop. Running workflows stop making progress.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return ErrNotRunning
	}
	o.running = false
	cancel := o.cancel
	done := o.loopDone
	o.mu.Unlock()

	o.bus.Unsubscribe(core.OrchestratorID)
	cancel()
	<-done

	return nil
}

// post delivers a command to the loop without blocking forever once the loop
// has exited (timer callbacks and bus pumps may outlive it briefly).
func (o *Orchestrator) post(cmd command) {
	select {
	case o.commands <- cmd:
	case <-o.loopDone:
	}
}

// Submit validates the workflow definition and hands it to the scheduling
// loop. Structural errors (empty DAG, duplicate or unknown task ids, cycles)
// are reported immediately and no task is ever assigned.
func (o *Orchestrator) Submit(def workflow.Definition) (*Handle, error) {
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workflow: %w", err)
	}
	if def.ID == "" {
		def.ID = core.NewID()
	}

	o.mu.Lock()
	running := o.running
	o.mu.Unlock()
	if !running {
		return nil, ErrNotRunning
	}

	handle := newHandle(def.ID, func() {
		o.post(command{kind: cmdCancel, workflowID: def.ID})
	})
	o.post(command{kind: cmdSubmit, def: def, handle: handle})

	return handle, nil
}

// Snapshot returns the current task statuses and retry counters of a workflow.
func (o *Orchestrator) Snapshot(workflowID string) (Snapshot, error) {
	o.mu.Lock()
	running := o.running
	o.mu.Unlock()
	if !running {
		return Snapshot{}, ErrNotRunning
	}

	ch := make(chan snapshotReply, 1)
	o.post(command{kind: cmdSnapshot, workflowID: workflowID, snapshotCh: ch})
	select {
	case reply := <-ch:
		return reply.snap, reply.err
	case <-o.loopDone:
		return Snapshot{}, ErrNotRunning
	}
}

func (o *Orchestrator) loop(ctx context.Context) {
	defer close(o.loopDone)

	ticker := time.NewTicker(o.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-o.commands:
			switch cmd.kind {
			case cmdSubmit:
				o.handleSubmit(cmd.def, cmd.handle)
			case cmdMessage:
				o.handleMessage(cmd.msg)
			case cmdTimeout:
				o.handleTimeout(cmd.workflowID, cmd.taskID, cmd.attemptID)
			case cmdCancel:
				o.handleCancel(cmd.workflowID)
			case cmdSnapshot:
				cmd.snapshotCh <- o.handleSnapshot(cmd.workflowID)
			}
		case <-ticker.C:
			o.tick()
		}
	}
}

func (o *Orchestrator) handleSubmit(def workflow.Definition, handle *Handle) {
	wf := &workflowState{
		def:    def,
		status: core.WorkflowRunning,
		tasks:  make(map[string]*taskState, len(def.Tasks)),
		order:  make([]string, 0, len(def.Tasks)),
		handle: handle,
	}

	now := time.Now()
	for i, spec := range def.Tasks {
		t := &taskState{spec: spec, status: core.TaskPending, seq: i, budget: o.resolveBudget(spec)}
		if len(spec.DependsOn) == 0 {
			t.status = core.TaskReady
			t.readySince = now
		}
		wf.tasks[spec.ID] = t
		wf.order = append(wf.order, spec.ID)
	}
	o.workflows[def.ID] = wf

	o.logger.WithWorkflow(def.ID).Info("workflow submitted", "name", def.Name, "tasks", len(def.Tasks))

	o.dispatch(wf)
}

func (o *Orchestrator) resolveBudget(spec workflow.TaskSpec) int {
	switch {
	case spec.MaxRetries > 0:
		return spec.MaxRetries
	case spec.MaxRetries < 0:
		return 0
	default:
		return o.retryBudget
	}
}

func (o *Orchestrator) handleMessage(msg core.Message) {
	switch msg.Type {
	case core.MessageGoalComplete:
		if payload, ok := msg.Payload.(core.ResultPayload); ok {
			o.handleGoalComplete(msg.CorrelationID, payload)
		}
	case core.MessageGoalFailed:
		if payload, ok := msg.Payload.(core.ResultPayload); ok {
			o.handleGoalFailed(msg.CorrelationID, payload)
		}
	case core.MessageStatusUpdate:
		if payload, ok := msg.Payload.(core.StatusPayload); ok {
			o.handleStatusUpdate(payload)
		}
	case core.MessageNeedAssistance:
		if payload, ok := msg.Payload.(core.AssistancePayload); ok {
			o.logger.Warn("agent requested assistance",
				"agent_id", payload.AgentID, "task_id", payload.TaskID, "key", payload.Key, "reason", payload.Reason)
		}
	default:
		o.logger.Debug("ignoring message", "type", msg.Type, "sender", msg.Sender)
	}
}

// resolveAttempt maps a reply's correlation id back to the live assignment.
// Stale replies (timed out, cancelled or superseded attempts) resolve to nil
// and are discarded.
func (o *Orchestrator) resolveAttempt(attemptID string) (*workflowState, *taskState) {
	ref, ok := o.attempts[attemptID]
	if !ok {
		return nil, nil
	}
	wf, ok := o.workflows[ref.workflowID]
	if !ok {
		return nil, nil
	}
	t, ok := wf.tasks[ref.taskID]
	if !ok || t.attemptID != attemptID {
		return nil, nil
	}
	return wf, t
}

func (o *Orchestrator) handleGoalComplete(attemptID string, payload core.ResultPayload) {
	wf, t := o.resolveAttempt(attemptID)
	if wf == nil {
		o.logger.Debug("discarding stale goal-complete", "task_id", payload.TaskID, "agent_id", payload.AgentID)
		return
	}

	o.settleAttempt(t)
	t.status = core.TaskDone

	o.logger.WithWorkflow(wf.def.ID).WithTask(t.spec.ID).Info("task done",
		"agent_id", payload.AgentID, "retries", t.retries)

	o.promoteUnblocked(wf)

	if o.allDone(wf) {
		o.finishWorkflow(wf, Result{
			WorkflowID:   wf.def.ID,
			Status:       core.WorkflowSucceeded,
			Retries:      retrySnapshot(wf),
			TaskStatuses: statusSnapshot(wf),
		})
		return
	}

	o.dispatch(wf)
}

func (o *Orchestrator) handleGoalFailed(attemptID string, payload core.ResultPayload) {
	wf, t := o.resolveAttempt(attemptID)
	if wf == nil {
		o.logger.Debug("discarding stale goal-failed", "task_id", payload.TaskID, "agent_id", payload.AgentID)
		return
	}

	logger := o.logger.WithWorkflow(wf.def.ID).WithTask(t.spec.ID)

	if payload.Rejected {
		// Busy rejection: the agent never accepted the goal. Requeue without
		// consuming retry budget.
		logger.Info("assignment rejected, requeueing", "agent_id", payload.AgentID)
		o.settleAttempt(t)
		t.status = core.TaskReady
		t.readySince = time.Now()
		o.dispatch(wf)
		return
	}

	o.failAttempt(wf, t, payload.Reason)
}

func (o *Orchestrator) handleStatusUpdate(payload core.StatusPayload) {
	for _, wf := range o.workflows {
		t, ok := wf.tasks[payload.TaskID]
		if !ok || t.assignedTo != payload.AgentID {
			continue
		}
		if t.status == core.TaskAssigned && payload.State == core.StateExecuting {
			t.status = core.TaskRunning
		}
		return
	}
}

func (o *Orchestrator) handleTimeout(workflowID, taskID, attemptID string) {
	wf, ok := o.workflows[workflowID]
	if !ok {
		return
	}
	t, ok := wf.tasks[taskID]
	if !ok || t.attemptID != attemptID {
		return // settled before the deadline fired
	}

	o.logger.WithWorkflow(workflowID).WithTask(taskID).Warn("assignment deadline exceeded",
		"agent_id", t.assignedTo, "timeout", o.taskTimeout)

	o.failAttempt(wf, t, "execution deadline exceeded")
}

// failAttempt applies the task-level retry policy after an execution error,
// planning error or timeout.
func (o *Orchestrator) failAttempt(wf *workflowState, t *taskState, reason string) {
	logger := o.logger.WithWorkflow(wf.def.ID).WithTask(t.spec.ID)

	o.settleAttempt(t)
	t.retries++
	t.failReason = reason

	if t.retries <= t.budget {
		logger.Info("task failed, retrying", "reason", reason, "retries", t.retries, "budget", t.budget)
		t.status = core.TaskReady
		t.readySince = time.Now()
		o.dispatch(wf)
		return
	}

	logger.Error("task failed, retry budget exhausted", "reason", reason, "retries", t.retries-1)
	t.status = core.TaskFailed

	o.cancelRemaining(wf)
	o.finishWorkflow(wf, Result{
		WorkflowID:   wf.def.ID,
		Status:       core.WorkflowFailed,
		FailedTaskID: t.spec.ID,
		Err:          fmt.Errorf("task %s failed: %s", t.spec.ID, reason),
		Retries:      retrySnapshot(wf),
		TaskStatuses: statusSnapshot(wf),
	})
}

func (o *Orchestrator) handleCancel(workflowID string) {
	wf, ok := o.workflows[workflowID]
	if !ok || wf.status.Terminal() {
		return
	}

	o.logger.WithWorkflow(workflowID).Info("workflow cancelled")

	o.cancelRemaining(wf)
	o.finishWorkflow(wf, Result{
		WorkflowID:   wf.def.ID,
		Status:       core.WorkflowFailed,
		Err:          ErrWorkflowCancelled,
		Retries:      retrySnapshot(wf),
		TaskStatuses: statusSnapshot(wf),
	})
}

func (o *Orchestrator) handleSnapshot(workflowID string) snapshotReply {
	wf, ok := o.workflows[workflowID]
	if !ok {
		return snapshotReply{err: fmt.Errorf("%w: %s", ErrUnknownWorkflow, workflowID)}
	}
	return snapshotReply{snap: Snapshot{
		WorkflowID: workflowID,
		Status:     wf.status,
		Tasks:      statusSnapshot(wf),
		Retries:    retrySnapshot(wf),
	}}
}

// settleAttempt clears the live assignment bookkeeping for a task: stops the
// deadline timer, releases the agent and removes the attempt record.
func (o *Orchestrator) settleAttempt(t *taskState) {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.attemptID != "" {
		delete(o.attempts, t.attemptID)
		t.attemptID = ""
	}
	if t.assignedTo != "" {
		o.registry.Release(t.assignedTo)
		t.assignedTo = ""
	}
}

// cancelRemaining cancels every task that has not settled. In-flight
// assignments are abandoned: their agents may finish, but the results are
// discarded because the attempt records are gone.
func (o *Orchestrator) cancelRemaining(wf *workflowState) {
	for _, id := range wf.order {
		t := wf.tasks[id]
		if t.status.Terminal() {
			continue
		}
		o.settleAttempt(t)
		t.status = core.TaskCancelled
	}
}

func (o *Orchestrator) finishWorkflow(wf *workflowState, res Result) {
	wf.status = res.Status
	o.logger.WithWorkflow(wf.def.ID).Info("workflow finished", "status", res.Status)
	wf.handle.complete(res)
}

// promoteUnblocked moves PENDING tasks whose dependencies are all DONE to READY.
func (o *Orchestrator) promoteUnblocked(wf *workflowState) {
	now := time.Now()
	for _, id := range wf.order {
		t := wf.tasks[id]
		if t.status != core.TaskPending {
			continue
		}
		unblocked := true
		for _, dep := range t.spec.DependsOn {
			if wf.tasks[dep].status != core.TaskDone {
				unblocked = false
				break
			}
		}
		if unblocked {
			t.status = core.TaskReady
			t.readySince = now
		}
	}
}

func (o *Orchestrator) allDone(wf *workflowState) bool {
	for _, t := range wf.tasks {
		if t.status != core.TaskDone {
			return false
		}
	}
	return true
}

// dispatch assigns READY tasks to capable agents, most urgent first (lowest
// priority value wins; ties broken by submission order). Tasks without an
// available agent stay READY for the next event or tick.
func (o *Orchestrator) dispatch(wf *workflowState) {
	if wf.status.Terminal() {
		return
	}

	ready := make([]*taskState, 0, len(wf.tasks))
	for _, id := range wf.order {
		if t := wf.tasks[id]; t.status == core.TaskReady {
			ready = append(ready, t)
		}
	}
	sort.SliceStable(ready, func(i, j int) bool {
		if ready[i].spec.Priority != ready[j].spec.Priority {
			return ready[i].spec.Priority < ready[j].spec.Priority
		}
		return ready[i].seq < ready[j].seq
	})

	for _, t := range ready {
		o.assign(wf, t)
	}
}

func (o *Orchestrator) assign(wf *workflowState, t *taskState) {
	agent, ok := o.registry.Acquire(t.spec.Capability)
	if !ok {
		return // capability scarcity is not an error; revisit next event/tick
	}

	attemptID := core.NewID()
	deadline := time.Now().Add(o.taskTimeout)

	goal := core.Goal{
		ID:          t.spec.ID,
		Description: t.spec.Description,
		Priority:    t.spec.Priority,
		Context:     t.spec.Context,
		Deadline:    deadline,
	}
	msg := core.NewMessage(core.MessageGoalAssigned, core.OrchestratorID, agent.ID(), core.GoalPayload{Goal: goal})
	msg.CorrelationID = attemptID

	if err := o.bus.Publish(msg); err != nil {
		o.registry.Release(agent.ID())
		o.logger.WithWorkflow(wf.def.ID).WithTask(t.spec.ID).Error("failed to publish assignment", "error", err)
		return
	}

	t.status = core.TaskAssigned
	t.assignedTo = agent.ID()
	t.attemptID = attemptID
	o.attempts[attemptID] = taskRef{workflowID: wf.def.ID, taskID: t.spec.ID}

	workflowID, taskID := wf.def.ID, t.spec.ID
	t.timer = time.AfterFunc(o.taskTimeout, func() {
		o.post(command{kind: cmdTimeout, workflowID: workflowID, taskID: taskID, attemptID: attemptID})
	})

	o.logger.WithWorkflow(workflowID).WithTask(taskID).Info("task assigned",
		"agent_id", agent.ID(), "capability", t.spec.Capability, "priority", t.spec.Priority)
}

// tick retries dispatching and surfaces capability gaps that persist past
// the watchdog interval.
func (o *Orchestrator) tick() {
	now := time.Now()
	for _, wf := range o.workflows {
		if wf.status.Terminal() {
			continue
		}
		o.dispatch(wf)

		for _, id := range wf.order {
			t := wf.tasks[id]
			if t.status != core.TaskReady {
				continue
			}
			if now.Sub(t.readySince) < o.watchdogInterval || now.Sub(t.lastWarn) < o.watchdogInterval {
				continue
			}
			if !o.registry.HasCapability(t.spec.Capability) {
				t.lastWarn = now
				o.logger.WithWorkflow(wf.def.ID).WithTask(id).Warn("no agent advertises required capability",
					"capability", t.spec.Capability, "ready_for", now.Sub(t.readySince).Round(time.Millisecond))
			}
		}
	}
}

func retrySnapshot(wf *workflowState) map[string]int {
	out := make(map[string]int, len(wf.tasks))
	for id, t := range wf.tasks {
		out[id] = t.retries
	}
	return out
}

func statusSnapshot(wf *workflowState) map[string]core.TaskStatus {
	out := make(map[string]core.TaskStatus, len(wf.tasks))
	for id, t := range wf.tasks {
		out[id] = t.status
	}
	return out
}
