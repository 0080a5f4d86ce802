package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a user account.
type User struct {
	ID             int64           `json:"id"`
	Username       string          `json:"username"`
	FullName       string          `json:"full_name"`
	Email          string          `json:"email,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	Address        string          `json:"address,omitempty"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	PasswordHash   string          `json:"-"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Session represents a user session.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
