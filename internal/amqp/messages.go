package amqp

import (
	"encoding/json"
	"time"

	"pgexpense/internal/core"
)

// Routing keys of published events.
const (
	RoutingExpenseCreated = "expense.created"
	RoutingSeedCompleted  = "seed.completed"
)

// ExpenseCreatedMessage announces a newly recorded expense.
type ExpenseCreatedMessage struct {
	ID          int64      `json:"id"`
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
	Category    *string    `json:"category"`
	Date        core.Date  `json:"date"`
	Timestamp   time.Time  `json:"timestamp"`
}

// NewExpenseCreatedMessage builds the event for a stored expense
func NewExpenseCreatedMessage(e core.Expense) *ExpenseCreatedMessage {
	return &ExpenseCreatedMessage{
		ID:          e.ID,
		Description: e.Description,
		Amount:      e.Amount,
		Category:    e.Category,
		Date:        e.Date,
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseCreatedMessageFromJSON creates a message from JSON bytes
func ExpenseCreatedMessageFromJSON(data []byte) (*ExpenseCreatedMessage, error) {
	var msg ExpenseCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SeedCompletedMessage summarises a finished bulk load.
type SeedCompletedMessage struct {
	RowsBefore int64     `json:"rows_before"`
	RowsAfter  int64     `json:"rows_after"`
	Inserted   int64     `json:"inserted"`
	Batches    int       `json:"batches"`
	DurationMs int64     `json:"duration_ms"`
	Skipped    bool      `json:"skipped"`
	Timestamp  time.Time `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m *SeedCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
