// Package insights derives read-only summaries from a user's transactions
// and streak record. Every function here is pure; callers load the data.
package insights

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/models"
)

var hundred = decimal.NewFromInt(100)

// CategoryTotal is the spending in one category.
type CategoryTotal struct {
	Category   string          `json:"category"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
	Style      CategoryStyle   `json:"style"`
}

// FinancialStats summarizes every transaction a user has recorded.
type FinancialStats struct {
	TotalTransactions      int             `json:"total_transactions"`
	ImpulseTransactions    int             `json:"impulse_transactions"`
	NonImpulseTransactions int             `json:"non_impulse_transactions"`
	TotalSpent             decimal.Decimal `json:"total_spent"`
	ImpulseSpent           decimal.Decimal `json:"impulse_spent"`
	NonImpulseSpent        decimal.Decimal `json:"non_impulse_spent"`
	ImpulsePercentage      float64         `json:"impulse_percentage"`
	ImpulseSpentPercentage float64         `json:"impulse_spent_percentage"`
	CategoryBreakdown      []CategoryTotal `json:"category_breakdown"`
}

// Stats computes counts and spending totals. Spending is the magnitude of
// expenses; income only counts towards the transaction totals.
func Stats(txs []models.Transaction) FinancialStats {
	s := FinancialStats{
		TotalTransactions: len(txs),
		TotalSpent:        decimal.Zero,
		ImpulseSpent:      decimal.Zero,
		NonImpulseSpent:   decimal.Zero,
	}
	for _, t := range txs {
		spent := spending(t)
		s.TotalSpent = s.TotalSpent.Add(spent)
		if t.Impulse {
			s.ImpulseTransactions++
			s.ImpulseSpent = s.ImpulseSpent.Add(spent)
		} else {
			s.NonImpulseSpent = s.NonImpulseSpent.Add(spent)
		}
	}
	s.NonImpulseTransactions = s.TotalTransactions - s.ImpulseTransactions
	s.ImpulsePercentage = percent(decimal.NewFromInt(int64(s.ImpulseTransactions)), decimal.NewFromInt(int64(s.TotalTransactions)))
	s.ImpulseSpentPercentage = percent(s.ImpulseSpent, s.TotalSpent)
	s.CategoryBreakdown = CategoryBreakdown(txs)
	return s
}

// CategoryBreakdown groups expenses by category, largest spend first.
// Categories match case-insensitively and keep the first spelling seen.
func CategoryBreakdown(txs []models.Transaction) []CategoryTotal {
	byKey := map[string]*CategoryTotal{}
	var keys []string
	total := decimal.Zero
	for _, t := range txs {
		if !t.IsExpense() {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(t.Category))
		ct, ok := byKey[key]
		if !ok {
			ct = &CategoryTotal{Category: t.Category, Total: decimal.Zero, Style: StyleFor(t.Category)}
			byKey[key] = ct
			keys = append(keys, key)
		}
		spent := spending(t)
		ct.Total = ct.Total.Add(spent)
		ct.Count++
		total = total.Add(spent)
	}

	out := make([]CategoryTotal, 0, len(keys))
	for _, k := range keys {
		ct := byKey[k]
		ct.Percentage = percent(ct.Total, total)
		out = append(out, *ct)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// BudgetSummary is the user's money position.
type BudgetSummary struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Income         decimal.Decimal `json:"income"`
	Expenses       decimal.Decimal `json:"expenses"`
	Savings        decimal.Decimal `json:"savings"`
	Balance        decimal.Decimal `json:"balance"`
}

// Budget totals income and expenses on top of the opening balance.
func Budget(opening decimal.Decimal, txs []models.Transaction) BudgetSummary {
	b := BudgetSummary{OpeningBalance: opening, Income: decimal.Zero, Expenses: decimal.Zero}
	for _, t := range txs {
		if t.IsExpense() {
			b.Expenses = b.Expenses.Add(t.Amount.Neg())
		} else {
			b.Income = b.Income.Add(t.Amount)
		}
	}
	b.Savings = b.Income.Sub(b.Expenses)
	b.Balance = opening.Add(b.Savings)
	return b
}

// Balance is the opening balance plus every signed amount.
func Balance(opening decimal.Decimal, txs []models.Transaction) decimal.Decimal {
	return Budget(opening, txs).Balance
}

// Recent returns up to n transactions, newest first.
func Recent(txs []models.Transaction, n int) []models.Transaction {
	sorted := make([]models.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.After(sorted[j].Date)
		}
		return sorted[i].ID > sorted[j].ID
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// MonthlyTrend is the spending in one calendar month.
type MonthlyTrend struct {
	Month           string          `json:"month"`
	Year            int             `json:"year"`
	MonthNumber     int             `json:"month_number"`
	TotalSpent      decimal.Decimal `json:"total_spent"`
	ImpulseSpent    decimal.Decimal `json:"impulse_spent"`
	NonImpulseSpent decimal.Decimal `json:"non_impulse_spent"`
	ImpulsePct      float64         `json:"impulse_pct"`
}

// MonthlyTrends returns one entry per month for the months months ending
// with the one containing now, oldest first. Months without spending are
// included with zero totals.
func MonthlyTrends(txs []models.Transaction, now time.Time, months int) []MonthlyTrend {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1-months, 0)
	trends := make([]MonthlyTrend, months)
	for i := range trends {
		m := first.AddDate(0, i, 0)
		trends[i] = MonthlyTrend{
			Month:           m.Format("Jan 2006"),
			Year:            m.Year(),
			MonthNumber:     int(m.Month()),
			TotalSpent:      decimal.Zero,
			ImpulseSpent:    decimal.Zero,
			NonImpulseSpent: decimal.Zero,
		}
	}

	for _, t := range txs {
		if !t.IsExpense() {
			continue
		}
		idx := (t.Date.Year()-first.Year())*12 + int(t.Date.Month()) - int(first.Month())
		if idx < 0 || idx >= months {
			continue
		}
		tr := &trends[idx]
		spent := spending(t)
		tr.TotalSpent = tr.TotalSpent.Add(spent)
		if t.Impulse {
			tr.ImpulseSpent = tr.ImpulseSpent.Add(spent)
		} else {
			tr.NonImpulseSpent = tr.NonImpulseSpent.Add(spent)
		}
	}
	for i := range trends {
		trends[i].ImpulsePct = percent(trends[i].ImpulseSpent, trends[i].TotalSpent)
	}
	return trends
}

// spending is the money an expense took out; income spends nothing.
func spending(t models.Transaction) decimal.Decimal {
	if t.IsExpense() {
		return t.Amount.Neg()
	}
	return decimal.Zero
}

// percent returns part/whole as a percentage rounded to one decimal, or 0
// when whole is not positive.
func percent(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	f, _ := part.Div(whole).Mul(hundred).Round(1).Float64()
	return f
}
