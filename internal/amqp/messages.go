package amqp

import (
	"encoding/json"
	"time"
)

const (
	TypePurchaseConfirmed = "purchase.confirmed"
	TypeBudgetChanged     = "budget.changed"
)

// PurchaseConfirmedMessage announces that a planned expense was confirmed.
// It carries the authoritative post-purchase numbers so downstream
// consumers can update rollups without re-reading the ledger.
type PurchaseConfirmedMessage struct {
	ExpenseID      int64     `json:"expenseId"`
	CategoryID     int64     `json:"categoryId"`
	Month          string    `json:"month"`
	PriceCents     int64     `json:"priceCents"`
	SpentCents     int64     `json:"spentCents"`
	RemainingCents int64     `json:"remainingCents"`
	Timestamp      time.Time `json:"timestamp"`
}

// BudgetChangedMessage announces an allocation upsert or removal.
type BudgetChangedMessage struct {
	Month       string    `json:"month"`
	CategoryID  int64     `json:"categoryId"`
	AmountCents int64     `json:"amountCents"`
	Removed     bool      `json:"removed,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func (m *PurchaseConfirmedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PurchaseConfirmedMessageFromJSON(data []byte) (*PurchaseConfirmedMessage, error) {
	var msg PurchaseConfirmedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (m *BudgetChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetChangedMessageFromJSON(data []byte) (*BudgetChangedMessage, error) {
	var msg BudgetChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
