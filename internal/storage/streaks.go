package storage

import (
	"context"
	"database/sql"
	"time"

	"spendwise/internal/models"
)

// GetStreak loads a user's streak record with its vouchers in earn order.
func (s queries) GetStreak(ctx context.Context, userID int64) (*models.StreakRecord, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT user_id, current_streak, longest_streak, completed_streaks, free_impulse_purchases,
			pending_free_passes, last_non_impulse_date, streak_reset_date, version, updated_at
		FROM streaks WHERE user_id = ?`, userID)

	rec := models.NewStreakRecord(userID)
	var lastNonImpulse, resetDate sql.NullTime
	if err := row.Scan(&rec.UserID, &rec.CurrentStreak, &rec.LongestStreak, &rec.CompletedStreaks,
		&rec.FreeImpulsePurchases, &rec.PendingFreePasses, &lastNonImpulse, &resetDate,
		&rec.Version, &rec.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	rec.LastNonImpulseDate = nullTime(lastNonImpulse)
	rec.StreakResetDate = nullTime(resetDate)

	rows, err := s.q.QueryContext(ctx, `
		SELECT id, type, milestone_date, earned_at, expires_at, used, used_at
		FROM vouchers WHERE user_id = ? ORDER BY seq ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var v models.Voucher
		var usedAt sql.NullTime
		if err := rows.Scan(&v.ID, &v.Type, &v.MilestoneDate, &v.EarnedAt, &v.ExpiresAt, &v.Used, &usedAt); err != nil {
			return nil, err
		}
		v.UsedAt = nullTime(usedAt)
		rec.Vouchers = append(rec.Vouchers, v)
	}
	return rec, rows.Err()
}

// SaveStreak writes rec if it still has the version it was read with. A
// record with version 0 is inserted. On success rec.Version is advanced;
// a stale version yields ErrStreakConflict and nothing is written.
func (s queries) SaveStreak(ctx context.Context, rec *models.StreakRecord) error {
	now := time.Now().UTC()
	if rec.Version == 0 {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO streaks (user_id, current_streak, longest_streak, completed_streaks,
				free_impulse_purchases, pending_free_passes, last_non_impulse_date, streak_reset_date,
				version, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`,
			rec.UserID, rec.CurrentStreak, rec.LongestStreak, rec.CompletedStreaks,
			rec.FreeImpulsePurchases, rec.PendingFreePasses, timeArg(rec.LastNonImpulseDate),
			timeArg(rec.StreakResetDate), now)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrStreakConflict
			}
			return err
		}
	} else {
		res, err := s.q.ExecContext(ctx, `
			UPDATE streaks SET current_streak = ?, longest_streak = ?, completed_streaks = ?,
				free_impulse_purchases = ?, pending_free_passes = ?, last_non_impulse_date = ?,
				streak_reset_date = ?, version = version + 1, updated_at = ?
			WHERE user_id = ? AND version = ?`,
			rec.CurrentStreak, rec.LongestStreak, rec.CompletedStreaks, rec.FreeImpulsePurchases,
			rec.PendingFreePasses, timeArg(rec.LastNonImpulseDate), timeArg(rec.StreakResetDate), now,
			rec.UserID, rec.Version)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrStreakConflict
		}
	}

	for i, v := range rec.Vouchers {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO vouchers (id, user_id, type, milestone_date, earned_at, expires_at, used, used_at, seq)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET used = excluded.used, used_at = excluded.used_at`,
			v.ID, rec.UserID, v.Type, v.MilestoneDate, v.EarnedAt, v.ExpiresAt, v.Used, timeArg(v.UsedAt), i)
		if err != nil {
			return err
		}
	}

	rec.Version++
	rec.UpdatedAt = now
	return nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func timeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
