package insights

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/models"
	"spendwise/internal/streak"
)

// StreakInfo is the dashboard view of a streak record.
type StreakInfo struct {
	CurrentStreak              int     `json:"current_streak"`
	LongestStreak              int     `json:"longest_streak"`
	Emoji                      string  `json:"emoji"`
	Progress                   string  `json:"progress"`
	ProgressPercent            float64 `json:"progress_percent"`
	NextMilestone              int     `json:"next_milestone"`
	CompletedStreaks           int     `json:"completed_streaks"`
	FreeImpulsePurchases       int     `json:"free_impulse_purchases"`
	ActiveVouchers             int     `json:"active_vouchers"`
	FreeImpulseProgress        string  `json:"free_impulse_progress"`
	FreeImpulseProgressPercent float64 `json:"free_impulse_progress_percent"`
}

// Emoji picks the mood for a streak length.
func Emoji(days int) string {
	switch {
	case days <= 0:
		return "😶"
	case days < 3:
		return "🙂"
	case days < 5:
		return "😊"
	case days < streak.WeekLength:
		return "🔥"
	default:
		return "🏆"
	}
}

// Streak builds the dashboard streak summary. Progress counts days into the
// current week; a streak sitting exactly on a milestone shows a full week.
func Streak(rec *models.StreakRecord, now time.Time) StreakInfo {
	week := rec.CurrentStreak % streak.WeekLength
	if week == 0 && rec.CurrentStreak > 0 {
		week = streak.WeekLength
	}
	credits := rec.CompletedStreaks % streak.StreaksPerFreeImpulse
	return StreakInfo{
		CurrentStreak:              rec.CurrentStreak,
		LongestStreak:              rec.LongestStreak,
		Emoji:                      Emoji(rec.CurrentStreak),
		Progress:                   fmt.Sprintf("%d/%d", week, streak.WeekLength),
		ProgressPercent:            ratio(week, streak.WeekLength),
		NextMilestone:              streak.WeekLength - rec.CurrentStreak%streak.WeekLength,
		CompletedStreaks:           rec.CompletedStreaks,
		FreeImpulsePurchases:       rec.FreeImpulsePurchases,
		ActiveVouchers:             len(rec.ActiveVouchers(now)),
		FreeImpulseProgress:        fmt.Sprintf("%d/%d", credits, streak.StreaksPerFreeImpulse),
		FreeImpulseProgressPercent: ratio(credits, streak.StreaksPerFreeImpulse),
	}
}

// SignificantStreak is the streak length from which a day counts as a streak day
// in the impact comparison.
const SignificantStreak = 3

// StreakImpact compares spending on days deep in a streak with all other days.
type StreakImpact struct {
	StreakDays                int             `json:"streak_days"`
	NonStreakDays             int             `json:"non_streak_days"`
	AvgDailyStreakSpending    decimal.Decimal `json:"avg_daily_streak_spending"`
	AvgDailyNonStreakSpending decimal.Decimal `json:"avg_daily_non_streak_spending"`
	SavingsPercentage         float64         `json:"savings_percentage"`
	ProjectedAnnualSavings    decimal.Decimal `json:"projected_annual_savings"`
}

// Impact computes the streak impact from the calendar and the transactions it was built from.
func Impact(days []streak.DayEntry, txs []models.Transaction) StreakImpact {
	spentByDay := map[string]decimal.Decimal{}
	for _, t := range txs {
		key := t.DayKey()
		spentByDay[key] = spentByDay[key].Add(spending(t))
	}

	streakSpent, otherSpent := decimal.Zero, decimal.Zero
	var impact StreakImpact
	for _, d := range days {
		if d.StreakDay >= SignificantStreak {
			impact.StreakDays++
			streakSpent = streakSpent.Add(spentByDay[d.Date])
		} else {
			impact.NonStreakDays++
			otherSpent = otherSpent.Add(spentByDay[d.Date])
		}
	}

	avgStreak, avgOther := decimal.Zero, decimal.Zero
	if impact.StreakDays > 0 {
		avgStreak = streakSpent.Div(decimal.NewFromInt(int64(impact.StreakDays)))
	}
	if impact.NonStreakDays > 0 {
		avgOther = otherSpent.Div(decimal.NewFromInt(int64(impact.NonStreakDays)))
	}
	impact.AvgDailyStreakSpending = avgStreak.Round(2)
	impact.AvgDailyNonStreakSpending = avgOther.Round(2)

	daily := avgOther.Sub(avgStreak)
	if avgStreak.IsPositive() && avgOther.IsPositive() {
		impact.SavingsPercentage = percent(daily, avgOther)
	}
	impact.ProjectedAnnualSavings = decimal.Zero
	if daily.IsPositive() {
		impact.ProjectedAnnualSavings = daily.Mul(decimal.NewFromInt(365)).Round(2)
	}
	return impact
}

// VoucherView is a voucher with its status at the time of the request.
type VoucherView struct {
	models.Voucher
	Status models.VoucherStatus `json:"status"`
}

// StreakSummary counts clean and impulse days over the whole history.
type StreakSummary struct {
	CurrentStreak        int     `json:"current_streak"`
	LongestStreak        int     `json:"longest_streak"`
	CompletedStreaks     int     `json:"completed_streaks"`
	NonImpulseDays       int     `json:"non_impulse_days"`
	ImpulseDays          int     `json:"impulse_days"`
	NonImpulsePercentage float64 `json:"non_impulse_percentage"`
}

// RewardStats summarizes the rewards a user has earned and spent.
type RewardStats struct {
	Summary              StreakSummary `json:"streak_summary"`
	VouchersEarned       int           `json:"vouchers_earned"`
	VouchersUsed         int           `json:"vouchers_used"`
	UnusedVouchers       int           `json:"unused_vouchers"`
	ActiveVouchers       int           `json:"active_vouchers"`
	FreeImpulsesEarned   int           `json:"free_impulses_earned"`
	FreeImpulsesUsed     int           `json:"free_impulses_used"`
	CurrentFreeImpulses  int           `json:"current_free_impulses"`
	VoucherUsageRate     float64       `json:"voucher_usage_rate"`
	FreeImpulseUsageRate float64       `json:"free_impulse_usage_rate"`
	VoucherHistory       []VoucherView `json:"voucher_history"`
}

// Rewards builds reward statistics. freeUsed is the number of expenses made
// with a free pass.
func Rewards(rec *models.StreakRecord, days []streak.DayEntry, freeUsed int, now time.Time) RewardStats {
	s := RewardStats{
		VouchersEarned:      len(rec.Vouchers),
		FreeImpulsesEarned:  rec.CompletedStreaks / streak.StreaksPerFreeImpulse,
		FreeImpulsesUsed:    freeUsed,
		CurrentFreeImpulses: rec.FreeImpulsePurchases,
		VoucherHistory:      make([]VoucherView, 0, len(rec.Vouchers)),
	}
	for _, v := range rec.Vouchers {
		status := v.Status(now)
		switch status {
		case models.VoucherUsed:
			s.VouchersUsed++
		case models.VoucherActive:
			s.ActiveVouchers++
		}
		s.VoucherHistory = append(s.VoucherHistory, VoucherView{Voucher: v, Status: status})
	}
	s.UnusedVouchers = s.VouchersEarned - s.VouchersUsed
	s.VoucherUsageRate = ratio(s.VouchersUsed, s.VouchersEarned)
	s.FreeImpulseUsageRate = ratio(s.FreeImpulsesUsed, s.FreeImpulsesEarned)

	s.Summary = StreakSummary{
		CurrentStreak:    rec.CurrentStreak,
		LongestStreak:    rec.LongestStreak,
		CompletedStreaks: rec.CompletedStreaks,
	}
	for _, d := range days {
		if d.HadImpulse {
			s.Summary.ImpulseDays++
		} else {
			s.Summary.NonImpulseDays++
		}
	}
	s.Summary.NonImpulsePercentage = ratio(s.Summary.NonImpulseDays, len(days))
	return s
}

func ratio(part, whole int) float64 {
	return percent(decimal.NewFromInt(int64(part)), decimal.NewFromInt(int64(whole)))
}
