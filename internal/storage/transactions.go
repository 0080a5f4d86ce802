package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/models"
)

const transactionColumns = `id, user_id, date, description, amount, category, necessity, time_of_day,
	payment_mode, source_app, impulse, impulse_probability, free_impulse_purchase, created_at`

// CreateTransaction inserts a transaction and sets its ID.
func (s queries) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO transactions (user_id, date, description, amount, category, necessity, time_of_day,
			payment_mode, source_app, impulse, impulse_probability, free_impulse_purchase, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Date, t.Description, t.Amount.String(), t.Category, t.Necessity, t.TimeOfDay,
		t.PaymentMode, t.SourceApp, t.Impulse, t.ImpulseProbability, t.FreeImpulsePurchase, t.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

// GetTransaction retrieves one of the user's transactions.
func (s queries) GetTransaction(ctx context.Context, userID, id int64) (*models.Transaction, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ? AND user_id = ?", id, userID)
	t, err := scanTransaction(row)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// ListTransactions returns all of a user's transactions, oldest first.
func (s queries) ListTransactions(ctx context.Context, userID int64) ([]models.Transaction, error) {
	return s.listTransactions(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE user_id = ? ORDER BY date ASC, id ASC", userID)
}

// RecentTransactions returns the user's newest transactions, newest first.
func (s queries) RecentTransactions(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	return s.listTransactions(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE user_id = ? ORDER BY date DESC, id DESC LIMIT ?",
		userID, limit)
}

// TransactionsBetween returns the user's transactions with from <= date < to, newest first.
func (s queries) TransactionsBetween(ctx context.Context, userID int64, from, to time.Time) ([]models.Transaction, error) {
	return s.listTransactions(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE user_id = ? AND date >= ? AND date < ? ORDER BY date DESC, id DESC",
		userID, from, to)
}

func (s queries) listTransactions(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var t models.Transaction
	var amount string
	if err := row.Scan(&t.ID, &t.UserID, &t.Date, &t.Description, &amount, &t.Category, &t.Necessity,
		&t.TimeOfDay, &t.PaymentMode, &t.SourceApp, &t.Impulse, &t.ImpulseProbability,
		&t.FreeImpulsePurchase, &t.CreatedAt); err != nil {
		return nil, err
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	t.Amount = a
	return &t, nil
}

// CountFreeImpulseTransactions counts the user's transactions made with a free pass.
func (s queries) CountFreeImpulseTransactions(ctx context.Context, userID int64) (int, error) {
	var n sql.NullInt64
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE user_id = ? AND free_impulse_purchase = 1", userID).Scan(&n)
	return int(n.Int64), err
}
