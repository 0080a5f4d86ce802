package storage

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/models"
)

const userColumns = "id, username, password_hash, full_name, email, phone, address, opening_balance, created_at"

// NewUser holds the fields needed to register a user.
type NewUser struct {
	Username     string
	PasswordHash string
	FullName     string
	Email        string
}

// CreateUser creates a new user with the given password hash.
func (s queries) CreateUser(ctx context.Context, u NewUser) (*models.User, error) {
	result, err := s.q.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, full_name, email) VALUES (?, ?, ?, ?)",
		u.Username, u.PasswordHash, u.FullName, u.Email,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// GetUserByUsername retrieves a user by username.
func (s queries) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
	return scanUser(row)
}

// UpdateProfile stores the editable profile fields of a user.
func (s queries) UpdateProfile(ctx context.Context, u *models.User) error {
	_, err := s.q.ExecContext(ctx,
		"UPDATE users SET full_name = ?, email = ?, phone = ?, address = ? WHERE id = ?",
		u.FullName, u.Email, u.Phone, u.Address, u.ID,
	)
	return err
}

// SetOpeningBalance sets the balance the user started tracking from.
func (s queries) SetOpeningBalance(ctx context.Context, userID int64, balance decimal.Decimal) error {
	res, err := s.q.ExecContext(ctx, "UPDATE users SET opening_balance = ? WHERE id = ?", balance.String(), userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// UserCount returns the number of users in the database.
func (s queries) UserCount(ctx context.Context) (int, error) {
	var count int
	err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var balance string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Email,
		&u.Phone, &u.Address, &balance, &u.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	b, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, err
	}
	u.OpeningBalance = b
	return &u, nil
}

// CreateSession creates a new session for a user.
func (s queries) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	now := time.Now().UTC()
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at, last_activity) VALUES (?, ?, ?, ?)",
		token, userID, expiresAt.UTC(), now,
	)
	return err
}

// SessionInfo holds session validation data.
type SessionInfo struct {
	User         *models.User
	LastActivity time.Time
	ExpiresAt    time.Time
}

// ValidateSession checks if a session token is valid and returns the associated user.
func (s queries) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	info, err := s.ValidateSessionWithInfo(ctx, token)
	if err != nil {
		return nil, err
	}
	return info.User, nil
}

// ValidateSessionWithInfo checks if a session token is valid and returns session details.
func (s queries) ValidateSessionWithInfo(ctx context.Context, token string) (*SessionInfo, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT s.user_id, s.last_activity, s.expires_at
		FROM sessions s
		WHERE s.token = ?
	`, token)

	var userID int64
	var lastActivity, expiresAt time.Time
	if err := row.Scan(&userID, &lastActivity, &expiresAt); err != nil {
		return nil, notFound(err)
	}
	if !expiresAt.After(time.Now()) {
		return nil, ErrNotFound
	}

	u, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &SessionInfo{
		User:         u,
		LastActivity: lastActivity,
		ExpiresAt:    expiresAt,
	}, nil
}

// RenewSession updates the last_activity and expires_at for a session.
func (s queries) RenewSession(ctx context.Context, token string, newExpiresAt time.Time) error {
	now := time.Now().UTC()
	_, err := s.q.ExecContext(ctx,
		"UPDATE sessions SET last_activity = ?, expires_at = ? WHERE token = ?",
		now, newExpiresAt.UTC(), token,
	)
	return err
}

// DeleteSession removes a session by token.
func (s queries) DeleteSession(ctx context.Context, token string) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// CleanExpiredSessions removes all expired sessions.
func (s queries) CleanExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.q.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
