package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/apperr"
	"spendwise/internal/models"
	"spendwise/internal/storage"
)

type challengeRequest struct {
	Title        string          `json:"title" validate:"required,max=100"`
	Description  string          `json:"description" validate:"max=500"`
	Points       int             `json:"points" validate:"min=0"`
	Category     string          `json:"category" validate:"max=50"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	EndDate      string          `json:"end_date"`
}

type progressRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type challengeView struct {
	*models.Challenge
	PercentComplete float64 `json:"percent_complete"`
}

func viewChallenge(c *models.Challenge) challengeView {
	return challengeView{Challenge: c, PercentComplete: c.PercentComplete()}
}

// ListChallenges returns the user's challenges.
func (h *Handlers) ListChallenges(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.db.ListChallenges(r.Context(), GetUserFromContext(r).ID)
	if err != nil {
		h.writeError(w, r, internal("list challenges", err))
		return
	}
	views := make([]challengeView, 0, len(challenges))
	for i := range challenges {
		views = append(views, viewChallenge(&challenges[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

// CreateChallenge starts a new savings challenge.
func (h *Handlers) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	const op = "create challenge"
	var req challengeRequest
	if err := decodeJSON(r, op, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := apperr.Validate(op, req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if !req.TargetAmount.IsPositive() {
		h.writeError(w, r, apperr.E(apperr.Validation, op, "target_amount must be positive"))
		return
	}
	now := h.streaks.Now()
	c := &models.Challenge{
		UserID:        GetUserFromContext(r).ID,
		Title:         req.Title,
		Description:   strings.TrimSpace(req.Description),
		Points:        req.Points,
		Category:      strings.TrimSpace(req.Category),
		Status:        models.ChallengeActive,
		TargetAmount:  req.TargetAmount,
		CurrentAmount: decimal.Zero,
		StartDate:     now,
	}
	if c.Category == "" {
		c.Category = "Other"
	}
	if req.EndDate != "" {
		end, ok := parseDate(req.EndDate)
		if !ok || end.Before(now.Truncate(24*time.Hour)) {
			h.writeError(w, r, apperr.E(apperr.Validation, op, "end_date must be a date that has not passed"))
			return
		}
		c.EndDate = &end
	}

	if err := h.db.CreateChallenge(r.Context(), c); err != nil {
		h.writeError(w, r, internal(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, viewChallenge(c))
}

// UpdateChallengeProgress adds saved money to a challenge.
func (h *Handlers) UpdateChallengeProgress(w http.ResponseWriter, r *http.Request) {
	const op = "update challenge progress"
	id, ok := h.pathID(w, r, op)
	if !ok {
		return
	}
	var req progressRequest
	if err := decodeJSON(r, op, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if !req.Amount.IsPositive() {
		h.writeError(w, r, apperr.E(apperr.Validation, op, "amount must be positive"))
		return
	}

	userID := GetUserFromContext(r).ID
	var updated *models.Challenge
	err := h.db.RunInTx(r.Context(), func(q storage.Queries) error {
		c, err := q.GetChallenge(r.Context(), userID, id)
		if err != nil {
			return notFoundOr(op, err, "challenge not found")
		}
		if c.Status == models.ChallengeCompleted {
			return apperr.E(apperr.InvalidState, op, "challenge is already completed")
		}
		c.AddProgress(req.Amount, h.streaks.Now())
		if err := q.UpdateChallenge(r.Context(), c); err != nil {
			return internal(op, err)
		}
		updated = c
		return nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewChallenge(updated))
}
