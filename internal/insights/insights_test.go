package insights

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/models"
	"spendwise/internal/streak"
)

var nextID int64

func tx(day, amount, category string, impulse bool) models.Transaction {
	d, err := time.Parse(models.DayLayout, day)
	if err != nil {
		panic(err)
	}
	nextID++
	return models.Transaction{
		ID:       nextID,
		Date:     d.Add(12 * time.Hour),
		Amount:   decimal.RequireFromString(amount),
		Category: category,
		Impulse:  impulse,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func TestStats(t *testing.T) {
	txs := []models.Transaction{
		tx("2025-03-01", "-100", "Groceries", false),
		tx("2025-03-02", "-300", "Dining", true),
		tx("2025-03-03", "-100", "dining", false),
		tx("2025-03-04", "1000", "Salary", false),
	}

	s := Stats(txs)
	assert.Equal(t, 4, s.TotalTransactions)
	assert.Equal(t, 1, s.ImpulseTransactions)
	assert.Equal(t, 3, s.NonImpulseTransactions)
	assertDec(t, "500", s.TotalSpent)
	assertDec(t, "300", s.ImpulseSpent)
	assertDec(t, "200", s.NonImpulseSpent)
	assert.InDelta(t, 25.0, s.ImpulsePercentage, 0.001)
	assert.InDelta(t, 60.0, s.ImpulseSpentPercentage, 0.001)

	require.Len(t, s.CategoryBreakdown, 2)
	assert.Equal(t, "Dining", s.CategoryBreakdown[0].Category)
	assertDec(t, "400", s.CategoryBreakdown[0].Total)
	assert.Equal(t, 2, s.CategoryBreakdown[0].Count)
	assert.InDelta(t, 80.0, s.CategoryBreakdown[0].Percentage, 0.001)
	assert.Equal(t, "Groceries", s.CategoryBreakdown[1].Category)
	assert.Equal(t, StyleFor("groceries"), s.CategoryBreakdown[1].Style)
}

func TestStats_Empty(t *testing.T) {
	s := Stats(nil)
	assert.Zero(t, s.TotalTransactions)
	assert.Zero(t, s.ImpulsePercentage)
	assert.Zero(t, s.ImpulseSpentPercentage)
	assert.True(t, s.TotalSpent.IsZero())
	assert.NotNil(t, s.CategoryBreakdown)
}

func TestBudget(t *testing.T) {
	txs := []models.Transaction{
		tx("2025-03-01", "500", "Salary", false),
		tx("2025-03-02", "-200", "Shopping", false),
		tx("2025-03-03", "-50.25", "Dining", true),
	}
	b := Budget(dec("1000"), txs)
	assertDec(t, "1000", b.OpeningBalance)
	assertDec(t, "500", b.Income)
	assertDec(t, "250.25", b.Expenses)
	assertDec(t, "249.75", b.Savings)
	assertDec(t, "1249.75", b.Balance)
	assertDec(t, "1249.75", Balance(dec("1000"), txs))
}

func TestRecent(t *testing.T) {
	var txs []models.Transaction
	for _, d := range []string{"2025-03-03", "2025-03-01", "2025-03-07", "2025-03-05", "2025-03-02", "2025-03-06"} {
		txs = append(txs, tx(d, "-1", "Other", false))
	}
	recent := Recent(txs, 5)
	require.Len(t, recent, 5)
	var days []string
	for _, r := range recent {
		days = append(days, r.DayKey())
	}
	assert.Equal(t, []string{"2025-03-07", "2025-03-06", "2025-03-05", "2025-03-03", "2025-03-02"}, days)
	assert.Equal(t, "2025-03-03", txs[0].DayKey(), "input untouched")
	assert.Len(t, Recent(txs[:2], 5), 2)
}

func TestMonthlyTrends(t *testing.T) {
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		tx("2024-12-31", "-999", "Shopping", true),
		tx("2025-02-10", "-100", "Shopping", true),
		tx("2025-02-11", "-300", "Groceries", false),
		tx("2025-03-01", "1000", "Salary", false),
		tx("2025-06-01", "-50", "Dining", false),
	}

	trends := MonthlyTrends(txs, now, 6)
	require.Len(t, trends, 6)
	assert.Equal(t, "Jan 2025", trends[0].Month)
	assert.Equal(t, "Jun 2025", trends[5].Month)

	feb := trends[1]
	assert.Equal(t, 2025, feb.Year)
	assert.Equal(t, 2, feb.MonthNumber)
	assertDec(t, "400", feb.TotalSpent)
	assertDec(t, "100", feb.ImpulseSpent)
	assertDec(t, "300", feb.NonImpulseSpent)
	assert.InDelta(t, 25.0, feb.ImpulsePct, 0.001)

	assert.True(t, trends[2].TotalSpent.IsZero(), "income is not spending")
	assertDec(t, "50", trends[5].TotalSpent)
	assert.Zero(t, trends[5].ImpulsePct)
}

func TestMonthlyTrends_AcrossYearBoundary(t *testing.T) {
	now := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	trends := MonthlyTrends([]models.Transaction{tx("2024-11-20", "-10", "Other", false)}, now, 6)
	assert.Equal(t, "Sep 2024", trends[0].Month)
	assertDec(t, "10", trends[2].TotalSpent)
}

func TestEmoji(t *testing.T) {
	cases := map[int]string{0: "😶", 1: "🙂", 2: "🙂", 3: "😊", 4: "😊", 5: "🔥", 6: "🔥", 7: "🏆", 30: "🏆"}
	for days, want := range cases {
		assert.Equal(t, want, Emoji(days), "days=%d", days)
	}
}

func TestStreakInfo(t *testing.T) {
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	rec := models.NewStreakRecord(1)
	rec.CurrentStreak = 10
	rec.LongestStreak = 15
	rec.CompletedStreaks = 4
	rec.FreeImpulsePurchases = 1
	rec.Vouchers = []models.Voucher{
		{ID: "a", ExpiresAt: now.Add(time.Hour)},
		{ID: "b", ExpiresAt: now.Add(-time.Hour)},
		{ID: "c", ExpiresAt: now.Add(time.Hour), Used: true},
	}

	info := Streak(rec, now)
	assert.Equal(t, "3/7", info.Progress)
	assert.InDelta(t, 42.9, info.ProgressPercent, 0.001)
	assert.Equal(t, 4, info.NextMilestone)
	assert.Equal(t, "1/3", info.FreeImpulseProgress)
	assert.InDelta(t, 33.3, info.FreeImpulseProgressPercent, 0.001)
	assert.Equal(t, 1, info.ActiveVouchers)
	assert.Equal(t, 15, info.LongestStreak)
	assert.Equal(t, "🏆", info.Emoji)

	rec.CurrentStreak = 14
	info = Streak(rec, now)
	assert.Equal(t, "7/7", info.Progress)
	assert.InDelta(t, 100.0, info.ProgressPercent, 0.001)
	assert.Equal(t, 7, info.NextMilestone)

	info = Streak(models.NewStreakRecord(1), now)
	assert.Equal(t, "0/7", info.Progress)
	assert.Equal(t, 7, info.NextMilestone)
	assert.Equal(t, "0/3", info.FreeImpulseProgress)
}

func TestImpact(t *testing.T) {
	txs := []models.Transaction{
		tx("2025-03-01", "-100", "Groceries", false),
		tx("2025-03-02", "-100", "Groceries", false),
		tx("2025-03-03", "-40", "Groceries", false),
		tx("2025-03-04", "-20", "Groceries", false),
		tx("2025-03-05", "-500", "Shopping", true),
	}
	impact := Impact(streak.ComputeCalendar(txs), txs)

	assert.Equal(t, 2, impact.StreakDays)
	assert.Equal(t, 3, impact.NonStreakDays)
	assertDec(t, "30", impact.AvgDailyStreakSpending)
	assertDec(t, "233.33", impact.AvgDailyNonStreakSpending)
	assert.InDelta(t, 87.1, impact.SavingsPercentage, 0.001)
	assertDec(t, "74216.67", impact.ProjectedAnnualSavings)
}

func TestImpact_NoHistory(t *testing.T) {
	impact := Impact(streak.ComputeCalendar(nil), nil)
	assert.Zero(t, impact.StreakDays)
	assert.Zero(t, impact.SavingsPercentage)
	assert.True(t, impact.ProjectedAnnualSavings.IsZero())
}

func TestRewards(t *testing.T) {
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	used := now.Add(-time.Hour)
	rec := models.NewStreakRecord(1)
	rec.CompletedStreaks = 3
	rec.Vouchers = []models.Voucher{
		{ID: "used", ExpiresAt: now.Add(time.Hour), Used: true, UsedAt: &used},
		{ID: "active", ExpiresAt: now.Add(time.Hour)},
		{ID: "expired", ExpiresAt: now.Add(-time.Hour)},
	}
	days := streak.ComputeCalendar([]models.Transaction{
		tx("2025-03-01", "-1", "Other", false),
		tx("2025-03-02", "-1", "Other", true),
		tx("2025-03-03", "-1", "Other", false),
		tx("2025-03-04", "-1", "Other", false),
	})

	s := Rewards(rec, days, 1, now)
	assert.Equal(t, 3, s.VouchersEarned)
	assert.Equal(t, 1, s.VouchersUsed)
	assert.Equal(t, 2, s.UnusedVouchers)
	assert.Equal(t, 1, s.ActiveVouchers)
	assert.Equal(t, 1, s.FreeImpulsesEarned)
	assert.Equal(t, 1, s.FreeImpulsesUsed)
	assert.InDelta(t, 33.3, s.VoucherUsageRate, 0.001)
	assert.InDelta(t, 100.0, s.FreeImpulseUsageRate, 0.001)

	require.Len(t, s.VoucherHistory, 3)
	assert.Equal(t, models.VoucherUsed, s.VoucherHistory[0].Status)
	assert.Equal(t, models.VoucherActive, s.VoucherHistory[1].Status)
	assert.Equal(t, models.VoucherExpired, s.VoucherHistory[2].Status)

	assert.Equal(t, 3, s.Summary.NonImpulseDays)
	assert.Equal(t, 1, s.Summary.ImpulseDays)
	assert.InDelta(t, 75.0, s.Summary.NonImpulsePercentage, 0.001)
}

func TestRewards_Empty(t *testing.T) {
	s := Rewards(models.NewStreakRecord(1), nil, 0, time.Now())
	assert.Zero(t, s.VoucherUsageRate)
	assert.Zero(t, s.FreeImpulseUsageRate)
	assert.NotNil(t, s.VoucherHistory)
}

func TestMonthly(t *testing.T) {
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		tx("2025-01-02", "-30", "Dining", false),
		tx("2025-01-05", "-70", "Groceries", false),
		tx("2025-01-06", "200", "Salary", false),
	}

	m := Monthly(txs, 2025, 1, now)
	assert.Equal(t, "January", m.MonthName)
	assertDec(t, "100", m.Total)
	assertDec(t, "200", m.Income)
	assert.Equal(t, 2024, m.PrevYear)
	assert.Equal(t, 12, m.PrevMonth)
	assert.Equal(t, 2025, m.NextYear)
	assert.Equal(t, 2, m.NextMonth)
	assert.True(t, m.IsCurrentMonth)

	require.Len(t, m.Transactions, 3)
	assert.Equal(t, "Salary", m.Transactions[0].Category, "newest first")
	assert.Equal(t, "Jan 06, 12:00", m.Transactions[0].Time)
	require.Len(t, m.Categories, 2)
	assert.Equal(t, "Groceries", m.Categories[0].Category)
	assert.InDelta(t, 70.0, m.Categories[0].Percentage, 0.001)

	december := Monthly(nil, 2024, 12, now)
	assert.Equal(t, 2025, december.NextYear)
	assert.Equal(t, 1, december.NextMonth)
	assert.False(t, december.IsCurrentMonth)
}

func TestMonthRange(t *testing.T) {
	from, to := MonthRange(2024, 2)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), to)
}

func TestStyleFor(t *testing.T) {
	assert.Equal(t, "🛒", StyleFor(" Groceries ").Icon)
	assert.Equal(t, StyleFor("other"), StyleFor("Crypto"))
}

func TestBuildDashboard(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	user := &models.User{ID: 1, OpeningBalance: dec("100")}
	var txs []models.Transaction
	for i := 1; i <= 8; i++ {
		txs = append(txs, tx(time.Date(2025, 3, i, 0, 0, 0, 0, time.UTC).Format(models.DayLayout), "-10", "Groceries", false))
	}
	rec := models.NewStreakRecord(1)
	rec.CurrentStreak = 8
	rec.FreeImpulsePurchases = 2
	rec.Vouchers = []models.Voucher{{ID: "v", ExpiresAt: now.Add(time.Hour)}}

	d := BuildDashboard(user, txs, rec, now)
	assert.Equal(t, 8, d.Stats.TotalTransactions)
	assertDec(t, "20", d.Budget.Balance)
	assert.Len(t, d.RecentTransactions, 5)
	assert.Equal(t, "2025-03-08", d.RecentTransactions[0].DayKey())
	assert.Len(t, d.MonthlyTrends, 6)
	assert.Equal(t, "1/7", d.Streak.Progress)
	assert.Len(t, d.Rewards.ActiveVouchers, 1)
	assert.Equal(t, 2, d.Rewards.FreeImpulsePurchases)
}
