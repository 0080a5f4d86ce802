package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"spendwise/internal/insights"
	"spendwise/internal/models"
)

type streakResponse struct {
	*models.StreakRecord
	ActiveVouchers []models.Voucher    `json:"active_vouchers"`
	Info           insights.StreakInfo `json:"info"`
}

type recomputeResponse struct {
	streakResponse
	NewVouchers []models.Voucher `json:"new_vouchers"`
}

func (h *Handlers) streakView(rec *models.StreakRecord) streakResponse {
	now := h.streaks.Now()
	return streakResponse{
		StreakRecord:   rec,
		ActiveVouchers: rec.ActiveVouchers(now),
		Info:           insights.Streak(rec, now),
	}
}

// GetStreak returns the user's streak record.
func (h *Handlers) GetStreak(w http.ResponseWriter, r *http.Request) {
	rec, err := h.streaks.Record(r.Context(), GetUserFromContext(r).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.streakView(rec))
}

// RedeemVoucher marks a voucher as used.
func (h *Handlers) RedeemVoucher(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	voucherID := chi.URLParam(r, "id")
	rec, err := h.streaks.RedeemVoucher(r.Context(), user.ID, voucherID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.WithField("user_id", user.ID).WithField("voucher_id", voucherID).Info("voucher redeemed")
	writeJSON(w, http.StatusOK, h.streakView(rec))
}

// RedeemFreeImpulse spends a free impulse purchase credit.
func (h *Handlers) RedeemFreeImpulse(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	rec, err := h.streaks.RedeemFreeImpulseCredit(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.WithField("user_id", user.ID).Info("free impulse purchase redeemed")
	writeJSON(w, http.StatusOK, h.streakView(rec))
}

// RecomputeStreak rebuilds the streak record from the transaction history.
func (h *Handlers) RecomputeStreak(w http.ResponseWriter, r *http.Request) {
	rec, minted, err := h.streaks.Recompute(r.Context(), GetUserFromContext(r).ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if minted == nil {
		minted = []models.Voucher{}
	}
	writeJSON(w, http.StatusOK, recomputeResponse{streakResponse: h.streakView(rec), NewVouchers: minted})
}
