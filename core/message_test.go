package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageValidate(t *testing.T) {
	t.Run("valid directed message", func(t *testing.T) {
		msg := NewMessage(MessageGoalAssigned, "orchestrator", "agent-1", GoalPayload{})
		assert.NoError(t, msg.Validate())
	})

	t.Run("valid broadcast", func(t *testing.T) {
		msg := NewBroadcast(MessageNeedAssistance, "agent-1", AssistancePayload{AgentID: "agent-1"})
		assert.NoError(t, msg.Validate())
	})

	t.Run("missing type", func(t *testing.T) {
		msg := NewMessage("", "a", "b", nil)
		assert.ErrorIs(t, msg.Validate(), ErrMissingType)
	})

	t.Run("unknown type", func(t *testing.T) {
		msg := NewMessage("gossip", "a", "b", nil)
		assert.Error(t, msg.Validate())
	})

	t.Run("missing sender", func(t *testing.T) {
		msg := NewMessage(MessageGoalComplete, "", "b", nil)
		assert.ErrorIs(t, msg.Validate(), ErrMissingSender)
	})

	t.Run("directed message needs recipient", func(t *testing.T) {
		msg := NewMessage(MessageGoalComplete, "a", "", nil)
		assert.ErrorIs(t, msg.Validate(), ErrMissingRecipient)
	})

	t.Run("broadcast needs no recipient", func(t *testing.T) {
		msg := NewBroadcast(MessageNeedAssistance, "a", nil)
		require.Empty(t, msg.Recipient)
		assert.NoError(t, msg.Validate())
	})
}

func TestMessageReply(t *testing.T) {
	t.Run("reply addresses the original sender", func(t *testing.T) {
		original := NewMessage(MessageDataRequest, "agent-1", "agent-2", DataRequestPayload{Key: "k"})
		reply := original.Reply(MessageDataResponse, "agent-2", DataResponsePayload{Key: "k", Found: false})

		assert.Equal(t, "agent-1", reply.Recipient)
		assert.Equal(t, "agent-2", reply.Sender)
	})

	t.Run("reply inherits correlation id", func(t *testing.T) {
		original := NewMessage(MessageGoalAssigned, "orchestrator", "agent-1", nil)
		original.CorrelationID = "attempt-42"
		reply := original.Reply(MessageGoalComplete, "agent-1", nil)
		assert.Equal(t, "attempt-42", reply.CorrelationID)
	})

	t.Run("reply falls back to the original id", func(t *testing.T) {
		original := NewMessage(MessageDataRequest, "agent-1", "agent-2", nil)
		reply := original.Reply(MessageDataResponse, "agent-2", nil)
		assert.Equal(t, original.ID, reply.CorrelationID)
	})
}

func TestBroadcastTypes(t *testing.T) {
	assert.True(t, MessageNeedAssistance.Broadcast())

	for _, mt := range []MessageType{
		MessageGoalAssigned, MessageGoalComplete, MessageGoalFailed,
		MessageDataRequest, MessageDataResponse, MessageStatusUpdate,
	} {
		assert.False(t, mt.Broadcast(), "type %s must be directed", mt)
	}
}

func TestMemory(t *testing.T) {
	var m Memory

	m.RecordObservation("saw input")
	m.RecordDecision("use plan A", "cheapest path")
	m.RecordOutcome("plan A", true, "")

	log := m.Snapshot()
	require.Len(t, log, 3)
	assert.Equal(t, KindObservation, log[0].Kind)
	assert.Equal(t, KindDecision, log[1].Kind)
	assert.Equal(t, "cheapest path", log[1].Detail)
	assert.Equal(t, KindOutcome, log[2].Kind)
	assert.True(t, log[2].Success)

	// Snapshot must be detached from internal state.
	log[0].Note = "mutated"
	assert.Equal(t, "saw input", m.Snapshot()[0].Note)
}
