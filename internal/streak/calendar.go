// Package streak computes impulse-free spending streaks and the rewards they earn.
package streak

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/models"
)

// Milestone types.
const (
	MilestoneWeekly      = "weekly"
	MilestoneFreeImpulse = "freeImpulse"
)

const (
	// WeekLength is the streak length that completes one weekly streak.
	WeekLength = 7
	// FreeImpulseStreak is the streak day marked as earning a free impulse purchase.
	FreeImpulseStreak = 21
	// StreaksPerFreeImpulse is how many completed streaks earn one free credit.
	StreaksPerFreeImpulse = 3
)

// DayEntry summarizes one calendar day of a user's transactions.
type DayEntry struct {
	Date            string          `json:"date"`
	HadImpulse      bool            `json:"had_impulse"`
	ImpulseCount    int             `json:"impulse_count"`
	NonImpulseCount int             `json:"non_impulse_count"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	StreakDay       int             `json:"streak_day"`
	Milestone       bool            `json:"milestone,omitempty"`
	MilestoneType   string          `json:"milestone_type,omitempty"`
}

// ComputeCalendar groups transactions by day and walks the days in order,
// assigning each its streak length. The input is not modified and the
// result depends only on the input.
func ComputeCalendar(txs []models.Transaction) []DayEntry {
	if len(txs) == 0 {
		return []DayEntry{}
	}

	byDay := make(map[string]*DayEntry)
	for i := range txs {
		key := txs[i].DayKey()
		day, ok := byDay[key]
		if !ok {
			day = &DayEntry{Date: key, TotalAmount: decimal.Zero}
			byDay[key] = day
		}
		if txs[i].Impulse {
			day.ImpulseCount++
			day.HadImpulse = true
		} else {
			day.NonImpulseCount++
		}
		day.TotalAmount = day.TotalAmount.Add(txs[i].Amount)
	}

	days := make([]DayEntry, 0, len(byDay))
	for _, d := range byDay {
		days = append(days, *d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })

	streak := 0
	for i := range days {
		day := &days[i]
		if day.HadImpulse {
			streak = 0
			day.StreakDay = 0
			continue
		}

		if i > 0 && days[i-1].StreakDay > 0 && consecutive(days[i-1].Date, day.Date) {
			streak++
		} else {
			streak = 1
		}
		day.StreakDay = streak

		if streak%WeekLength == 0 {
			day.Milestone = true
			day.MilestoneType = MilestoneWeekly
		}
		if streak == FreeImpulseStreak {
			day.Milestone = true
			day.MilestoneType = MilestoneFreeImpulse
		}
	}
	return days
}

func consecutive(prev, next string) bool {
	p, err1 := time.Parse(models.DayLayout, prev)
	n, err2 := time.Parse(models.DayLayout, next)
	if err1 != nil || err2 != nil {
		return false
	}
	return p.AddDate(0, 0, 1).Equal(n)
}
