package amqp

import (
	"encoding/json"
	"time"
)

// Ledger event operations.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// LedgerEventMessage notifies that a transaction mutation was committed.
// It carries only ids; the consumer reads current state from the store and
// reconciles the affected accounts.
type LedgerEventMessage struct {
	Op               string    `json:"op"`
	TransactionID    int64     `json:"transaction_id"`
	AccountID        int64     `json:"account_id"`
	CounterAccountID int64     `json:"counter_account_id,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

func NewLedgerEventMessage(op string, transactionID, accountID, counterAccountID int64) *LedgerEventMessage {
	return &LedgerEventMessage{
		Op:               op,
		TransactionID:    transactionID,
		AccountID:        accountID,
		CounterAccountID: counterAccountID,
		Timestamp:        time.Now(),
	}
}

// AccountIDs returns the accounts touched by the event.
func (m *LedgerEventMessage) AccountIDs() []int64 {
	ids := []int64{m.AccountID}
	if m.CounterAccountID != 0 {
		ids = append(ids, m.CounterAccountID)
	}
	return ids
}

// ToJSON converts the message to JSON bytes.
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
