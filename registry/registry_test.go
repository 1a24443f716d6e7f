package registry

import (
	"testing"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterValidation(t *testing.T) {
	r := New()

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(testutil.NewStubAgent("")))
	assert.Error(t, r.Register(testutil.NewStubAgent("no-caps")))

	require.NoError(t, r.Register(testutil.NewStubAgent("a1", "parsing")))
	assert.Error(t, r.Register(testutil.NewStubAgent("a1", "parsing")), "duplicate id must be rejected")
}

func TestCapabilityIndex(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(testutil.NewStubAgent("a1", "parsing", "analysis")))
	require.NoError(t, r.Register(testutil.NewStubAgent("a2", "analysis")))

	assert.Equal(t, []string{"analysis", "parsing"}, r.Capabilities())
	assert.True(t, r.HasCapability("parsing"))
	assert.False(t, r.HasCapability("publishing"))
	assert.Equal(t, []string{"a1", "a2"}, r.AgentsFor("analysis"))

	agent, ok := r.Agent("a2")
	require.True(t, ok)
	assert.Equal(t, "a2", agent.ID())

	agents := r.Agents()
	require.Len(t, agents, 2)
	assert.Equal(t, "a1", agents[0].ID())
}

func TestDeregisterRemovesCapabilities(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(testutil.NewStubAgent("a1", "parsing")))

	r.Deregister("a1")
	assert.False(t, r.HasCapability("parsing"))
	_, ok := r.Agent("a1")
	assert.False(t, ok)

	// Unknown ids are a no-op.
	r.Deregister("ghost")
}

func TestAcquireReservesAgent(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(testutil.NewStubAgent("a1", "parsing")))

	agent, ok := r.Acquire("parsing")
	require.True(t, ok)
	assert.Equal(t, "a1", agent.ID())
	assert.True(t, r.Busy("a1"))

	// Reserved agents are not handed out twice.
	_, ok = r.Acquire("parsing")
	assert.False(t, ok)

	r.Release("a1")
	_, ok = r.Acquire("parsing")
	assert.True(t, ok)
}

func TestAcquireSkipsNonIdleAgents(t *testing.T) {
	r := New()
	stub := testutil.NewStubAgent("a1", "parsing")
	require.NoError(t, r.Register(stub))

	stub.SetState(core.StateExecuting)
	_, ok := r.Acquire("parsing")
	assert.False(t, ok)

	stub.SetState(core.StateIdle)
	_, ok = r.Acquire("parsing")
	assert.True(t, ok)
}

func TestAcquireUnknownCapability(t *testing.T) {
	r := New()
	_, ok := r.Acquire("alchemy")
	assert.False(t, ok)
}

func TestAcquireRotatesLeastRecentlyAssigned(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(testutil.NewStubAgent("a1", "analysis")))
	require.NoError(t, r.Register(testutil.NewStubAgent("a2", "analysis")))
	require.NoError(t, r.Register(testutil.NewStubAgent("a3", "analysis")))

	// Never-assigned agents win first, in registration order.
	var order []string
	for i := 0; i < 3; i++ {
		agent, ok := r.Acquire("analysis")
		require.True(t, ok)
		order = append(order, agent.ID())
		r.Release(agent.ID())
	}
	assert.Equal(t, []string{"a1", "a2", "a3"}, order)

	// The rotation continues with the least recently assigned.
	agent, ok := r.Acquire("analysis")
	require.True(t, ok)
	assert.Equal(t, "a1", agent.ID())
}

func TestAcquireIsDeterministicAcrossRuns(t *testing.T) {
	run := func() []string {
		r := New()
		require.NoError(t, r.Register(testutil.NewStubAgent("a1", "x")))
		require.NoError(t, r.Register(testutil.NewStubAgent("a2", "x")))
		var order []string
		for i := 0; i < 6; i++ {
			agent, ok := r.Acquire("x")
			require.True(t, ok)
			order = append(order, agent.ID())
			r.Release(agent.ID())
		}
		return order
	}

	first := run()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, run())
	}
}
