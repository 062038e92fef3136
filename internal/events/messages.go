package events

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// SummaryIncrementMessage asks the worker to bump one denormalized
// monthly-summary counter. The amount travels as a decimal string so no
// precision is lost on the wire.
type SummaryIncrementMessage struct {
	UserID    string    `json:"user_id"`
	MonthKey  string    `json:"month_key"`
	SpendType string    `json:"spend_type"`
	Amount    string    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSummaryIncrementMessage builds a message for the given counter bump.
func NewSummaryIncrementMessage(userID, monthKey, spendType string, amount decimal.Decimal) *SummaryIncrementMessage {
	return &SummaryIncrementMessage{
		UserID:    userID,
		MonthKey:  monthKey,
		SpendType: spendType,
		Amount:    amount.String(),
		Timestamp: time.Now(),
	}
}

// Delta parses the carried amount.
func (m *SummaryIncrementMessage) Delta() (decimal.Decimal, error) {
	return decimal.NewFromString(m.Amount)
}

// ToJSON converts the message to JSON bytes.
func (m *SummaryIncrementMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SummaryIncrementMessageFromJSON creates a message from JSON bytes.
func SummaryIncrementMessageFromJSON(data []byte) (*SummaryIncrementMessage, error) {
	var msg SummaryIncrementMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
