package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"expensetracker/internal/gateway"
)

// ExpenseChangedMessage announces that an owner's records changed. Consumers
// reload the owner's snapshot themselves, so the message carries no record data.
type ExpenseChangedMessage struct {
	OwnerID   string    `json:"owner_id"`
	ExpenseID string    `json:"expense_id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
	// Source is the publishing client, so a process can skip its own echoes.
	Source string `json:"source,omitempty"`
}

func NewExpenseChangedMessage(c gateway.Change) *ExpenseChangedMessage {
	return &ExpenseChangedMessage{
		OwnerID:   c.OwnerID,
		ExpenseID: c.ExpenseID,
		Op:        string(c.Op),
		Timestamp: time.Now().UTC(),
	}
}

// Change converts the message back into a gateway change.
func (m *ExpenseChangedMessage) Change() gateway.Change {
	return gateway.Change{OwnerID: m.OwnerID, ExpenseID: m.ExpenseID, Op: gateway.ChangeOp(m.Op)}
}

func (m *ExpenseChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseChangedMessageFromJSON decodes a message and requires an owner.
func ExpenseChangedMessageFromJSON(data []byte) (*ExpenseChangedMessage, error) {
	var msg ExpenseChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.OwnerID == "" {
		return nil, fmt.Errorf("message without owner_id")
	}
	return &msg, nil
}
