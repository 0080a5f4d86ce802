package insights

import (
	"time"

	"spendwise/internal/models"
)

const (
	recentCount = 5
	trendMonths = 6
)

// DashboardRewards lists what the user can spend right now.
type DashboardRewards struct {
	ActiveVouchers       []models.Voucher `json:"active_vouchers"`
	FreeImpulsePurchases int              `json:"free_impulse_purchases"`
}

// Dashboard is everything the home screen shows.
type Dashboard struct {
	Stats              FinancialStats       `json:"financial_stats"`
	Budget             BudgetSummary        `json:"budget"`
	Streak             StreakInfo           `json:"streak_info"`
	RecentTransactions []models.Transaction `json:"recent_transactions"`
	MonthlyTrends      []MonthlyTrend       `json:"monthly_trends"`
	Rewards            DashboardRewards     `json:"rewards"`
}

// BuildDashboard assembles the dashboard from the user's full history.
func BuildDashboard(user *models.User, txs []models.Transaction, rec *models.StreakRecord, now time.Time) Dashboard {
	return Dashboard{
		Stats:              Stats(txs),
		Budget:             Budget(user.OpeningBalance, txs),
		Streak:             Streak(rec, now),
		RecentTransactions: Recent(txs, recentCount),
		MonthlyTrends:      MonthlyTrends(txs, now, trendMonths),
		Rewards: DashboardRewards{
			ActiveVouchers:       rec.ActiveVouchers(now),
			FreeImpulsePurchases: rec.FreeImpulsePurchases,
		},
	}
}
