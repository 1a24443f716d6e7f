// Package taskmesh provides a high-level façade over the coordination
// services (message bus, blackboard, agent registry and workflow
// orchestrator) enabling rapid construction of multi-agent task pipelines.
// Most applications interact with this package by:
//  1. Creating a Mesh via New() (optionally overriding defaults)
//  2. Registering one or more agent workers
//  3. Starting the mesh and submitting workflow definitions (Submit) or
//     running them to completion (SubmitAndWait)
//
// The façade delegates scheduling to orchestrator.Orchestrator while keeping
// setup and usage ergonomics concise. All defaults are safe for local
// development and testing.
package taskmesh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/taskmesh/agent"
	"github.com/hupe1980/taskmesh/blackboard"
	"github.com/hupe1980/taskmesh/bus"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/orchestrator"
	"github.com/hupe1980/taskmesh/output"
	"github.com/hupe1980/taskmesh/registry"
	"github.com/hupe1980/taskmesh/workflow"
)

// Options configures the Mesh instance.
type Options struct {
	// HistoryLimit bounds the bus message history ring.
	HistoryLimit int
	// RetryBudget is the default per-task retry budget.
	RetryBudget int
	// TaskTimeout is the execution deadline attached to each assignment.
	TaskTimeout time.Duration
	// ArtifactStore persists exported results (defaults to in-memory).
	ArtifactStore output.ArtifactStore
	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// AgentStatus is a point-in-time view of one registered agent.
type AgentStatus struct {
	ID           string
	Description  string
	Capabilities []string
	State        core.AgentState
	Busy         bool
}

// Status is a point-in-time view of the whole mesh.
type Status struct {
	Running        bool
	Agents         []AgentStatus
	BlackboardKeys int
	DroppedMsgs    uint64
}

// Mesh is the high-level façade aggregating the coordination services.
type Mesh struct {
	bus          *bus.Bus
	board        *blackboard.Blackboard
	registry     *registry.Registry
	orchestrator *orchestrator.Orchestrator
	exporter     *output.Exporter
	store        output.ArtifactStore

	mu      sync.Mutex
	workers []*agent.Worker
	running bool
	ctx     context.Context

	logger *logging.MeshLogger
}

// New creates a Mesh with optional overrides. Any unset service is
// initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Mesh {
	opts := Options{
		HistoryLimit:  1000,
		RetryBudget:   2,
		TaskTimeout:   30 * time.Second,
		ArtifactStore: output.NewInMemoryStore(),
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	b := bus.New(func(o *bus.Options) {
		o.HistoryLimit = opts.HistoryLimit
		o.Logger = opts.Logger
	})
	board := blackboard.New(func(o *blackboard.Options) {
		o.Logger = opts.Logger
	})
	reg := registry.New(func(o *registry.Options) {
		o.Logger = opts.Logger
	})
	orch := orchestrator.New(reg, b, func(o *orchestrator.Options) {
		o.RetryBudget = opts.RetryBudget
		o.TaskTimeout = opts.TaskTimeout
		o.Logger = opts.Logger
	})
	exporter := output.NewExporter(board, opts.ArtifactStore, func(o *output.ExporterOptions) {
		o.Logger = opts.Logger
	})

	return &Mesh{
		bus:          b,
		board:        board,
		registry:     reg,
		orchestrator: orch,
		exporter:     exporter,
		store:        opts.ArtifactStore,
		logger:       logging.NewMeshLogger(opts.Logger).WithComponent("mesh"),
	}
}

// RegisterAgent connects the worker to the mesh services and adds it to the
// capability registry. A worker registered while the mesh is running is
// started immediately.
func (m *Mesh) RegisterAgent(w *agent.Worker) error {
	if w == nil {
		return errors.New("worker must not be nil")
	}

	if err := w.Connect(m.bus, m.board); err != nil {
		return fmt.Errorf("failed to connect agent %s: %w", w.ID(), err)
	}
	if err := m.registry.Register(w); err != nil {
		m.bus.Unsubscribe(w.ID())
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers = append(m.workers, w)
	if m.running {
		if err := w.Start(m.ctx); err != nil {
			return err
		}
	}

	m.logger.Info("agent registered", "agent_id", w.ID(), "capabilities", w.Capabilities())

	return nil
}

// Start launches the orchestrator and every registered worker.
func (m *Mesh) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return errors.New("mesh already running")
	}

	if err := m.orchestrator.Start(ctx); err != nil {
		return err
	}
	for _, w := range m.workers {
		if err := w.Start(ctx); err != nil {
			return err
		}
	}

	m.running = true
	m.ctx = ctx
	m.logger.Info("mesh started", "agents", len(m.workers))

	return nil
}

// Stop terminates the orchestrator, all workers and the bus.
func (m *Mesh) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return errors.New("mesh is not running")
	}
	m.running = false

	var errs []error
	if err := m.orchestrator.Stop(); err != nil {
		errs = append(errs, err)
	}
	for _, w := range m.workers {
		if err := w.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	m.bus.Close()

	m.logger.Info("mesh stopped")

	return errors.Join(errs...)
}

// Submit hands a validated workflow to the orchestrator and returns its handle.
func (m *Mesh) Submit(def workflow.Definition) (*orchestrator.Handle, error) {
	return m.orchestrator.Submit(def)
}

// SubmitAndWait is a synchronous helper that submits the workflow and blocks
// until it settles or the context is cancelled.
func (m *Mesh) SubmitAndWait(ctx context.Context, def workflow.Definition) (orchestrator.Result, error) {
	handle, err := m.Submit(def)
	if err != nil {
		return orchestrator.Result{}, err
	}
	return handle.Wait(ctx)
}

// Export persists the blackboard entries tagged as output for the workflow.
func (m *Mesh) Export(workflowID string) ([]output.Manifest, error) {
	return m.exporter.Export(workflowID)
}

// Status returns a point-in-time view of the mesh and its agents.
func (m *Mesh) Status() Status {
	m.mu.Lock()
	running := m.running
	workers := make([]*agent.Worker, len(m.workers))
	copy(workers, m.workers)
	m.mu.Unlock()

	agents := make([]AgentStatus, 0, len(workers))
	for _, w := range workers {
		agents = append(agents, AgentStatus{
			ID:           w.ID(),
			Description:  w.Description(),
			Capabilities: w.Capabilities(),
			State:        w.State(),
			Busy:         m.registry.Busy(w.ID()),
		})
	}

	return Status{
		Running:        running,
		Agents:         agents,
		BlackboardKeys: m.board.Len(),
		DroppedMsgs:    m.bus.Dropped(),
	}
}

// Bus exposes the underlying message bus.
func (m *Mesh) Bus() *bus.Bus { return m.bus }

// Blackboard exposes the shared blackboard.
func (m *Mesh) Blackboard() *blackboard.Blackboard { return m.board }

// Registry exposes the capability registry.
func (m *Mesh) Registry() *registry.Registry { return m.registry }

// Orchestrator exposes the workflow orchestrator.
func (m *Mesh) Orchestrator() *orchestrator.Orchestrator { return m.orchestrator }

// Artifacts exposes the artifact store backing Export.
func (m *Mesh) Artifacts() output.ArtifactStore { return m.store }
