package storage

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"spendwise/internal/models"
)

const challengeColumns = `id, user_id, title, description, points, category, status, target_amount,
	current_amount, start_date, end_date, completed_date`

// CreateChallenge inserts a challenge and sets its ID.
func (s queries) CreateChallenge(ctx context.Context, c *models.Challenge) error {
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO challenges (user_id, title, description, points, category, status, target_amount,
			current_amount, start_date, end_date, completed_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.Title, c.Description, c.Points, c.Category, c.Status, c.TargetAmount.String(),
		c.CurrentAmount.String(), c.StartDate, timeArg(c.EndDate), timeArg(c.CompletedDate))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// GetChallenge retrieves one of the user's challenges.
func (s queries) GetChallenge(ctx context.Context, userID, id int64) (*models.Challenge, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+challengeColumns+" FROM challenges WHERE id = ? AND user_id = ?", id, userID)
	c, err := scanChallenge(row)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// ListChallenges returns the user's challenges, newest first.
func (s queries) ListChallenges(ctx context.Context, userID int64) ([]models.Challenge, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+challengeColumns+" FROM challenges WHERE user_id = ? ORDER BY start_date DESC, id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	challenges := []models.Challenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, *c)
	}
	return challenges, rows.Err()
}

// UpdateChallenge stores the progress fields of a challenge.
func (s queries) UpdateChallenge(ctx context.Context, c *models.Challenge) error {
	_, err := s.q.ExecContext(ctx,
		"UPDATE challenges SET status = ?, current_amount = ?, completed_date = ? WHERE id = ? AND user_id = ?",
		c.Status, c.CurrentAmount.String(), timeArg(c.CompletedDate), c.ID, c.UserID)
	return err
}

func scanChallenge(row rowScanner) (*models.Challenge, error) {
	var c models.Challenge
	var target, current string
	var end, completed sql.NullTime
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.Description, &c.Points, &c.Category, &c.Status,
		&target, &current, &c.StartDate, &end, &completed); err != nil {
		return nil, err
	}
	var err error
	if c.TargetAmount, err = decimal.NewFromString(target); err != nil {
		return nil, err
	}
	if c.CurrentAmount, err = decimal.NewFromString(current); err != nil {
		return nil, err
	}
	c.EndDate = nullTime(end)
	c.CompletedDate = nullTime(completed)
	return &c, nil
}
