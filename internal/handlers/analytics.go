package handlers

import (
	"net/http"

	"spendwise/internal/insights"
)

// Dashboard returns the home screen summary.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	const op = "dashboard"
	user := GetUserFromContext(r)
	txs, err := h.transactionsOf(r, op)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.streaks.Record(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, insights.BuildDashboard(user, txs, rec, h.streaks.Now()))
}

// BudgetSummary returns income, expenses, savings and balance.
func (h *Handlers) BudgetSummary(w http.ResponseWriter, r *http.Request) {
	txs, err := h.transactionsOf(r, "budget summary")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, insights.Budget(GetUserFromContext(r).OpeningBalance, txs))
}

// StreakCalendar returns the day-by-day streak calendar.
func (h *Handlers) StreakCalendar(w http.ResponseWriter, r *http.Request) {
	days, err := h.streaks.Calendar(r.Context(), GetUserFromContext(r).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

// StreakImpact compares spending on streak days with other days.
func (h *Handlers) StreakImpact(w http.ResponseWriter, r *http.Request) {
	const op = "streak impact"
	txs, err := h.transactionsOf(r, op)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	days, err := h.streaks.Calendar(r.Context(), GetUserFromContext(r).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, insights.Impact(days, txs))
}

// RewardStats returns voucher and free purchase statistics.
func (h *Handlers) RewardStats(w http.ResponseWriter, r *http.Request) {
	const op = "reward stats"
	user := GetUserFromContext(r)
	rec, err := h.streaks.Record(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	days, err := h.streaks.Calendar(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	freeUsed, err := h.db.CountFreeImpulseTransactions(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, internal(op, err))
		return
	}
	writeJSON(w, http.StatusOK, insights.Rewards(rec, days, freeUsed, h.streaks.Now()))
}
