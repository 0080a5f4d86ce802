// Package impulse scores transactions for impulse-purchase risk.
package impulse

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/models"
)

// LargePurchaseThreshold is the absolute amount above which a purchase counts as large.
var LargePurchaseThreshold = decimal.NewFromInt(5000)

// Threshold is the score above which a transaction is flagged.
const Threshold = 0.5

const (
	weightCategory  = 0.30
	weightTime      = 0.15
	weightAmount    = 0.20
	weightNecessity = 0.25
	weightWeekend   = 0.10

	defaultCategoryRisk = 0.5
	defaultTimeRisk     = 0.3
)

var categoryRisk = map[string]float64{
	"health":        0.0,
	"groceries":     0.1,
	"utilities":     0.2,
	"transport":     0.3,
	"travel":        0.4,
	"entertainment": 0.6,
	"shopping":      0.7,
	"dining":        0.8,
}

var timeRisk = map[string]float64{
	"morning":   0.2,
	"afternoon": 0.3,
	"evening":   0.5,
	"night":     0.8,
}

// Features are the inputs to the scorer.
type Features struct {
	Category  string
	Amount    decimal.Decimal
	TimeOfDay string
	Necessity string
	Weekend   bool
}

// Result is the classifier output.
type Result struct {
	Impulse     bool    `json:"impulse"`
	Probability float64 `json:"probability"`
}

// Classify scores the features. It is pure and safe for concurrent use.
func Classify(f Features) Result {
	score := weightCategory*lookup(categoryRisk, f.Category, defaultCategoryRisk) +
		weightTime*lookup(timeRisk, f.TimeOfDay, defaultTimeRisk) +
		weightAmount*amountFactor(f.Amount) +
		weightNecessity*necessityFactor(f.Necessity) +
		weightWeekend*weekendFactor(f.Weekend)
	return Result{Impulse: score > Threshold, Probability: score}
}

// FeaturesOf extracts the scorer inputs from a transaction.
func FeaturesOf(tx *models.Transaction) Features {
	return Features{
		Category:  tx.Category,
		Amount:    tx.Amount,
		TimeOfDay: tx.TimeOfDay,
		Necessity: tx.Necessity,
		Weekend:   IsWeekend(tx.Date),
	}
}

// IsWeekend reports whether the date falls on Saturday or Sunday.
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// CategoryRisk returns the risk weight used for a category.
func CategoryRisk(category string) float64 {
	return lookup(categoryRisk, category, defaultCategoryRisk)
}

func lookup(table map[string]float64, key string, def float64) float64 {
	if v, ok := table[strings.ToLower(strings.TrimSpace(key))]; ok {
		return v
	}
	return def
}

func amountFactor(amount decimal.Decimal) float64 {
	if amount.Abs().GreaterThan(LargePurchaseThreshold) {
		return 0.6
	}
	return 0.3
}

func necessityFactor(tag string) float64 {
	if strings.EqualFold(tag, models.Need) {
		return 0.2
	}
	return 0.7
}

func weekendFactor(weekend bool) float64 {
	if weekend {
		return 0.6
	}
	return 0.4
}
