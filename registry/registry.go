package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

type record struct {
	agent        core.Agent
	busy         bool
	registered   uint64
	lastAssigned uint64 // 0 = never assigned
}

// Options configures a Registry.
type Options struct {
	Logger logging.Logger
}

// Registry maps capability names to the agents currently able to serve them.
// All mutation goes through its methods; internal locking serializes
// concurrent same-capability operations so callers never need external locks.
type Registry struct {
	mu           sync.Mutex
	records      map[string]*record
	byCapability map[string]map[string]struct{}
	seq          uint64
	logger       logging.Logger
}

// New constructs an empty Registry.
func New(optFns ...func(o *Options)) *Registry {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		records:      make(map[string]*record),
		byCapability: make(map[string]map[string]struct{}),
		logger:       opts.Logger,
	}
}

// Register adds an agent and indexes its declared capabilities. Registering
// an id twice is an error.
func (r *Registry) Register(agent core.Agent) error {
	if agent == nil {
		return errors.New("agent must not be nil")
	}
	id := agent.ID()
	if id == "" {
		return errors.New("agent id must not be empty")
	}
	caps := agent.Capabilities()
	if len(caps) == 0 {
		return fmt.Errorf("agent %s declares no capabilities", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[id]; exists {
		return fmt.Errorf("agent %s already registered", id)
	}

	r.seq++
	r.records[id] = &record{agent: agent, registered: r.seq}
	for _, cap := range caps {
		if r.byCapability[cap] == nil {
			r.byCapability[cap] = make(map[string]struct{})
		}
		r.byCapability[cap][id] = struct{}{}
	}

	r.logger.Info("registry: agent registered", "agent_id", id, "capabilities", caps)

	return nil
}

// Deregister removes an agent and its capability index entries. Unknown ids
// are a no-op.
func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return
	}
	for _, cap := range rec.agent.Capabilities() {
		delete(r.byCapability[cap], id)
		if len(r.byCapability[cap]) == 0 {
			delete(r.byCapability, cap)
		}
	}
	delete(r.records, id)

	r.logger.Info("registry: agent deregistered", "agent_id", id)
}

// Agent returns the registered agent with the given id.
func (r *Registry) Agent(id string) (core.Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, false
	}
	return rec.agent, true
}

// Agents returns all registered agents in registration order.
func (r *Registry) Agents() []core.Agent {
	r.mu.Lock()
	defer r.mu.Unlock()

	recs := make([]*record, 0, len(r.records))
	for _, rec := range r.records {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].registered < recs[j].registered })

	agents := make([]core.Agent, len(recs))
	for i, rec := range recs {
		agents[i] = rec.agent
	}
	return agents
}

// Capabilities returns every capability currently advertised, sorted.
func (r *Registry) Capabilities() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	caps := make([]string, 0, len(r.byCapability))
	for cap := range r.byCapability {
		caps = append(caps, cap)
	}
	sort.Strings(caps)
	return caps
}

// HasCapability reports whether any registered agent declares the capability,
// regardless of availability.
func (r *Registry) HasCapability(capability string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byCapability[capability]) > 0
}

// AgentsFor returns the ids of all agents declaring the capability, in
// registration order.
func (r *Registry) AgentsFor(capability string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.candidatesLocked(capability)
}

func (r *Registry) candidatesLocked(capability string) []string {
	ids := make([]string, 0, len(r.byCapability[capability]))
	for id := range r.byCapability[capability] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return r.records[ids[i]].registered < r.records[ids[j]].registered
	})
	return ids
}

// Acquire atomically selects and reserves an available agent for the
// capability. An agent is available when it is not already reserved and its
// own state machine reports IDLE.
//
// Selection policy (deterministic, relied upon by workflow tests): the
// least-recently-assigned available agent wins; agents never assigned come
// first; remaining ties are broken by registration order. Returns false when
// no agent is available; capability scarcity is not an error.
func (r *Registry) Acquire(capability string) (core.Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *record
	for _, id := range r.candidatesLocked(capability) {
		rec := r.records[id]
		if rec.busy || rec.agent.State() != core.StateIdle {
			continue
		}
		if best == nil || rec.lastAssigned < best.lastAssigned {
			best = rec
		}
	}
	if best == nil {
		return nil, false
	}

	r.seq++
	best.busy = true
	best.lastAssigned = r.seq

	r.logger.Debug("registry: agent acquired", "agent_id", best.agent.ID(), "capability", capability)

	return best.agent, true
}

// Release returns a previously acquired agent to the available pool.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		rec.busy = false
	}
}

// Busy reports whether the agent is currently reserved by an assignment.
func (r *Registry) Busy(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	return ok && rec.busy
}
