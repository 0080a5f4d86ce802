package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Challenge statuses.
const (
	ChallengeActive    = "Active"
	ChallengeCompleted = "Completed"
)

// Challenge is a savings goal the user works towards.
type Challenge struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Points        int             `json:"points"`
	Category      string          `json:"category"`
	Status        string          `json:"status"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       *time.Time      `json:"end_date,omitempty"`
	CompletedDate *time.Time      `json:"completed_date,omitempty"`
}

// PercentComplete is the only place progress is derived; it is never stored.
func (c *Challenge) PercentComplete() float64 {
	if !c.TargetAmount.IsPositive() {
		return 0
	}
	pct, _ := c.CurrentAmount.Div(c.TargetAmount).Mul(decimal.NewFromInt(100)).Float64()
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// AddProgress adds amount to the challenge and completes it once the target is met.
func (c *Challenge) AddProgress(amount decimal.Decimal, now time.Time) {
	c.CurrentAmount = c.CurrentAmount.Add(amount)
	if c.Status != ChallengeCompleted && c.PercentComplete() >= 100 {
		c.Status = ChallengeCompleted
		c.CompletedDate = &now
	}
}
