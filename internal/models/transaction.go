package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Necessity tags.
const (
	Need = "Need"
	Want = "Want"
)

// Time-of-day buckets.
const (
	Morning   = "Morning"
	Afternoon = "Afternoon"
	Evening   = "Evening"
	Night     = "Night"
)

// Transaction is one income or expense record. Positive amounts are income,
// negative amounts are expenses.
type Transaction struct {
	ID                  int64           `json:"id"`
	UserID              int64           `json:"user_id"`
	Date                time.Time       `json:"date"`
	Description         string          `json:"description"`
	Amount              decimal.Decimal `json:"amount"`
	Category            string          `json:"category"`
	Necessity           string          `json:"necessity"`
	TimeOfDay           string          `json:"time_of_day"`
	PaymentMode         string          `json:"payment_mode"`
	SourceApp           string          `json:"source_app,omitempty"`
	Impulse             bool            `json:"impulse"`
	ImpulseProbability  float64         `json:"impulse_probability"`
	FreeImpulsePurchase bool            `json:"free_impulse_purchase"`
	CreatedAt           time.Time       `json:"created_at"`
}

// IsExpense reports whether the transaction takes money out.
func (t *Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// DayKey returns the calendar day of the transaction in its own wall clock.
func (t *Transaction) DayKey() string {
	return t.Date.Format(DayLayout)
}

// DayLayout is the layout used for calendar day keys.
const DayLayout = "2006-01-02"
