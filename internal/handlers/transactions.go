package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"spendwise/internal/apperr"
	"spendwise/internal/insights"
	"spendwise/internal/models"
	"spendwise/internal/streak"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// dateLayouts are the accepted forms of a transaction date, most precise first.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

type transactionRequest struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Necessity   string          `json:"necessity"`
	TimeOfDay   string          `json:"time_of_day"`
	PaymentMode string          `json:"payment_mode"`
	SourceApp   string          `json:"source_app"`
}

type createTransactionResponse struct {
	*streak.Applied
	Balance decimal.Decimal `json:"balance"`
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CreateTransaction records a transaction and updates the user's streak.
func (h *Handlers) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	const op = "create transaction"
	var req transactionRequest
	if err := decodeJSON(r, op, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	date, ok := parseDate(req.Date)
	if !ok {
		h.writeError(w, r, apperr.E(apperr.Validation, op, "date must look like 2006-01-02 or 2006-01-02T15:04"))
		return
	}

	user := GetUserFromContext(r)
	applied, err := h.streaks.ApplyNewTransaction(r.Context(), user.ID, streak.TransactionInput{
		Date:        date,
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
		Necessity:   req.Necessity,
		TimeOfDay:   req.TimeOfDay,
		PaymentMode: req.PaymentMode,
		SourceApp:   req.SourceApp,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	txs, err := h.db.ListTransactions(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, internal(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, createTransactionResponse{
		Applied: applied,
		Balance: insights.Balance(user.OpeningBalance, txs),
	})
}

// ListTransactions returns the user's transactions, newest first.
func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	const op = "list transactions"
	limit := defaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxListLimit {
			h.writeError(w, r, apperr.E(apperr.Validation, op, "limit must be between 1 and %d", maxListLimit))
			return
		}
		limit = n
	}

	txs, err := h.db.RecentTransactions(r.Context(), GetUserFromContext(r).ID, limit)
	if err != nil {
		h.writeError(w, r, internal(op, err))
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// GetTransaction returns one of the user's transactions.
func (h *Handlers) GetTransaction(w http.ResponseWriter, r *http.Request) {
	const op = "get transaction"
	id, ok := h.pathID(w, r, op)
	if !ok {
		return
	}
	t, err := h.db.GetTransaction(r.Context(), GetUserFromContext(r).ID, id)
	if err != nil {
		h.writeError(w, r, notFoundOr(op, err, "transaction not found"))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// pathID parses the {id} URL parameter, writing a 400 when it is not a number.
func (h *Handlers) pathID(w http.ResponseWriter, r *http.Request, op string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		h.writeError(w, r, apperr.E(apperr.Validation, op, "id must be a positive integer"))
		return 0, false
	}
	return id, true
}

// transactionsOf loads the full history of the current user.
func (h *Handlers) transactionsOf(r *http.Request, op string) ([]models.Transaction, error) {
	txs, err := h.db.ListTransactions(r.Context(), GetUserFromContext(r).ID)
	if err != nil {
		return nil, internal(op, err)
	}
	return txs, nil
}
