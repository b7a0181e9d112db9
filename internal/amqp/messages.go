package amqp

import (
	"encoding/json"
	"time"
)

// Collection names carried in change messages. They match the snapshot file
// names the worker writes.
const (
	CollectionTransactions  = "transactions"
	CollectionSplits        = "expense_splits"
	CollectionRecurring     = "recurring_transactions"
	CollectionSavingsGoals  = "savings_goals"
	CollectionGoals         = "goals"
	CollectionBillReminders = "bill_reminders"
)

// Change operations
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// ChangeMessage is a lightweight notification that a row in a collection
// changed. It carries only identifiers, the worker fetches current state from
// the database, so a stale or duplicated delivery is harmless.
type ChangeMessage struct {
	Collection string    `json:"collection"`
	ID         string    `json:"id"`
	Op         string    `json:"op"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewChangeMessage creates a change message stamped with the current time
func NewChangeMessage(collection, id, op string) *ChangeMessage {
	return &ChangeMessage{
		Collection: collection,
		ID:         id,
		Op:         op,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON creates a message from JSON bytes
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
