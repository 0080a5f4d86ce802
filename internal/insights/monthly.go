package insights

import (
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/models"
)

// MonthItem is a transaction as listed on the monthly statistics page.
type MonthItem struct {
	models.Transaction
	Time  string        `json:"time"`
	Style CategoryStyle `json:"style"`
}

// MonthlyStats is the spending of one calendar month.
type MonthlyStats struct {
	Year           int             `json:"year"`
	Month          int             `json:"month"`
	MonthName      string          `json:"month_name"`
	Total          decimal.Decimal `json:"total"`
	Income         decimal.Decimal `json:"income"`
	Categories     []CategoryTotal `json:"categories"`
	Transactions   []MonthItem     `json:"transactions"`
	PrevYear       int             `json:"prev_year"`
	PrevMonth      int             `json:"prev_month"`
	NextYear       int             `json:"next_year"`
	NextMonth      int             `json:"next_month"`
	IsCurrentMonth bool            `json:"is_current_month"`
}

// MonthRange returns the first instant of the month and of the month after it.
func MonthRange(year, month int) (from, to time.Time) {
	from = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

// Monthly builds statistics for year/month from that month's transactions.
func Monthly(txs []models.Transaction, year, month int, now time.Time) MonthlyStats {
	from, next := MonthRange(year, month)
	prev := from.AddDate(0, -1, 0)

	stats := MonthlyStats{
		Year:           year,
		Month:          month,
		MonthName:      from.Month().String(),
		Total:          decimal.Zero,
		Income:         decimal.Zero,
		Categories:     CategoryBreakdown(txs),
		Transactions:   make([]MonthItem, 0, len(txs)),
		PrevYear:       prev.Year(),
		PrevMonth:      int(prev.Month()),
		NextYear:       next.Year(),
		NextMonth:      int(next.Month()),
		IsCurrentMonth: year == now.Year() && month == int(now.Month()),
	}
	for _, t := range Recent(txs, len(txs)) {
		if t.IsExpense() {
			stats.Total = stats.Total.Add(spending(t))
		} else {
			stats.Income = stats.Income.Add(t.Amount)
		}
		stats.Transactions = append(stats.Transactions, MonthItem{
			Transaction: t,
			Time:        t.Date.Format("Jan 02, 15:04"),
			Style:       StyleFor(t.Category),
		})
	}
	return stats
}
