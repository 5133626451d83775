package amqp

import (
	"encoding/json"
	"time"
)

// Message kinds routed through the events exchange.
const (
	KindDataChanged = "data.changed"
	KindSavingsPost = "savings.post"
)

// Collections a DataChangedMessage can name. They map onto the calculation
// cache's invalidation targets.
const (
	CollectionTransactions = "transactions"
	CollectionBudgets      = "budgets"
	CollectionRecurring    = "recurring"
	CollectionBalances     = "balances"
)

// DataChangedMessage announces that an input collection was mutated. Serving
// processes invalidate the matching cache targets; payloads stay lightweight
// because consumers reload from storage anyway.
type DataChangedMessage struct {
	Collection string    `json:"collection"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewDataChangedMessage creates a change announcement for one collection.
func NewDataChangedMessage(collection string) *DataChangedMessage {
	return &DataChangedMessage{
		Collection: collection,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *DataChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DataChangedMessageFromJSON parses a change announcement.
func DataChangedMessageFromJSON(data []byte) (*DataChangedMessage, error) {
	var msg DataChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SavingsPostMessage asks the worker to post one month's savings for every
// recurring-payment definition. Posting is idempotent per (year, month), so
// redelivery is harmless.
type SavingsPostMessage struct {
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSavingsPostMessage creates a posting request for one month.
func NewSavingsPostMessage(year, month int) *SavingsPostMessage {
	return &SavingsPostMessage{
		Year:      year,
		Month:     month,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *SavingsPostMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SavingsPostMessageFromJSON parses a posting request.
func SavingsPostMessageFromJSON(data []byte) (*SavingsPostMessage, error) {
	var msg SavingsPostMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// envelope wraps every published message with its kind so one queue can carry
// both message types.
type envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}
