package handlers

import (
	"net/http"
	"strconv"

	"spendwise/internal/insights"
)

// Statistics returns category totals and transactions for one month.
func (h *Handlers) Statistics(w http.ResponseWriter, r *http.Request) {
	const op = "statistics"
	// Get year and month from query params, default to current month
	now := h.streaks.Now()
	year := now.Year()
	month := int(now.Month())

	if y, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil {
		year = y
	}
	if m, err := strconv.Atoi(r.URL.Query().Get("month")); err == nil && m >= 1 && m <= 12 {
		month = m
	}

	from, to := insights.MonthRange(year, month)
	txs, err := h.db.TransactionsBetween(r.Context(), GetUserFromContext(r).ID, from, to)
	if err != nil {
		h.writeError(w, r, internal(op, err))
		return
	}
	writeJSON(w, http.StatusOK, insights.Monthly(txs, year, month, now))
}
