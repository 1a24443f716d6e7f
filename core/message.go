package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OrchestratorID is the well-known bus subscriber id of the orchestrator.
const OrchestratorID = "orchestrator"

// MessageType identifies the coordination intent of a Message.
type MessageType string

const (
	// MessageGoalAssigned is sent by the orchestrator to hand a goal to an agent.
	MessageGoalAssigned MessageType = "goal-assigned"
	// MessageGoalComplete reports successful completion of an assigned goal.
	MessageGoalComplete MessageType = "goal-complete"
	// MessageGoalFailed reports failure (or busy rejection) of an assigned goal.
	MessageGoalFailed MessageType = "goal-failed"
	// MessageDataRequest asks another agent for a blackboard value it owns.
	MessageDataRequest MessageType = "data-request"
	// MessageDataResponse answers a prior data request.
	MessageDataResponse MessageType = "data-response"
	// MessageNeedAssistance is broadcast by an agent blocked on a missing
	// precondition. It is the only broadcast type.
	MessageNeedAssistance MessageType = "need-assistance"
	// MessageStatusUpdate announces an agent state transition while working
	// on a goal, letting the orchestrator track ASSIGNED vs RUNNING tasks.
	MessageStatusUpdate MessageType = "status-update"
)

var knownMessageTypes = map[MessageType]struct{}{
	MessageGoalAssigned:   {},
	MessageGoalComplete:   {},
	MessageGoalFailed:     {},
	MessageDataRequest:    {},
	MessageDataResponse:   {},
	MessageNeedAssistance: {},
	MessageStatusUpdate:   {},
}

// Broadcast reports whether messages of this type fan out to every
// subscriber instead of a single named recipient.
func (t MessageType) Broadcast() bool { return t == MessageNeedAssistance }

// Message is the unit of control traffic between agents and the
// orchestrator. Once published to the bus a message must be treated as
// immutable; the bus never mutates accepted messages.
//
// Recipient is empty for broadcast messages. CorrelationID links a reply to
// the message (or assignment attempt) that caused it.
type Message struct {
	ID            string      `json:"id"`
	Type          MessageType `json:"type"`
	Sender        string      `json:"sender"`
	Recipient     string      `json:"recipient,omitempty"`
	Payload       any         `json:"payload,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// NewMessage constructs a directed message. Use an empty recipient only for
// broadcast types.
func NewMessage(t MessageType, sender, recipient string, payload any) Message {
	return Message{
		ID:        NewID(),
		Type:      t,
		Sender:    sender,
		Recipient: recipient,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// NewBroadcast constructs a broadcast message with no named recipient.
func NewBroadcast(t MessageType, sender string, payload any) Message {
	return NewMessage(t, sender, "", payload)
}

// Reply builds a response message addressed to this message's sender. The
// reply inherits the original message's correlation id, falling back to the
// original id so request/response pairs always correlate.
func (m Message) Reply(t MessageType, sender string, payload any) Message {
	reply := NewMessage(t, sender, m.Sender, payload)
	reply.CorrelationID = m.CorrelationID
	if reply.CorrelationID == "" {
		reply.CorrelationID = m.ID
	}
	return reply
}

// Validate checks structural well-formedness. The bus rejects messages that
// fail validation; unreachable recipients are not an error.
func (m Message) Validate() error {
	if m.Type == "" {
		return fmt.Errorf("message %s: %w", m.ID, ErrMissingType)
	}
	if _, ok := knownMessageTypes[m.Type]; !ok {
		return fmt.Errorf("message %s: unknown type %q", m.ID, m.Type)
	}
	if m.Sender == "" {
		return fmt.Errorf("message %s: %w", m.ID, ErrMissingSender)
	}
	if m.Recipient == "" && !m.Type.Broadcast() {
		return fmt.Errorf("message %s (%s): %w", m.ID, m.Type, ErrMissingRecipient)
	}
	return nil
}

// NewID returns a fresh UUID string used for message, attempt and default
// task/workflow identifiers.
func NewID() string { return uuid.NewString() }

// GoalPayload carries the goal of a goal-assigned message.
type GoalPayload struct {
	Goal Goal `json:"goal"`
}

// ResultPayload carries the outcome of a goal on goal-complete / goal-failed
// messages. Rejected marks a busy rejection: the agent never accepted the
// goal, so the orchestrator requeues the task without spending retry budget.
type ResultPayload struct {
	TaskID   string `json:"task_id"`
	AgentID  string `json:"agent_id"`
	Rejected bool   `json:"rejected,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// StatusPayload carries an agent state transition on status-update messages.
type StatusPayload struct {
	AgentID string     `json:"agent_id"`
	TaskID  string     `json:"task_id,omitempty"`
	State   AgentState `json:"state"`
}

// DataRequestPayload asks for a single blackboard key.
type DataRequestPayload struct {
	Key string `json:"key"`
}

// DataResponsePayload answers a data request. Found is false when the key
// does not exist; Value and Version are then zero values.
type DataResponsePayload struct {
	Key     string `json:"key"`
	Value   any    `json:"value,omitempty"`
	Version int    `json:"version,omitempty"`
	Found   bool   `json:"found"`
}

// AssistancePayload describes what a blocked agent is waiting for.
type AssistancePayload struct {
	AgentID string `json:"agent_id"`
	TaskID  string `json:"task_id,omitempty"`
	Key     string `json:"key,omitempty"`
	Reason  string `json:"reason,omitempty"`
}
