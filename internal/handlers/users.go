package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/apperr"
	"spendwise/internal/auth"
	"spendwise/internal/models"
	"spendwise/internal/storage"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	FullName string `json:"full_name" validate:"max=100"`
	Email    string `json:"email" validate:"omitempty,email"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type profileRequest struct {
	FullName string `json:"full_name" validate:"max=100"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"max=30"`
	Address  string `json:"address" validate:"max=200"`
}

type balanceRequest struct {
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

type authResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Register creates a user and logs them in.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	const op = "register"
	var req registerRequest
	if err := decodeJSON(r, op, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := apperr.Validate(op, req); err != nil {
		h.writeError(w, r, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.writeError(w, r, internal(op, err))
		return
	}
	user, err := h.db.CreateUser(r.Context(), storage.NewUser{
		Username:     req.Username,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Email:        req.Email,
	})
	if errors.Is(err, storage.ErrDuplicate) {
		h.writeError(w, r, apperr.E(apperr.InvalidState, op, "username %q is already taken", req.Username))
		return
	}
	if err != nil {
		h.writeError(w, r, internal(op, err))
		return
	}

	token, err := h.startSession(w, r, user)
	if err != nil {
		h.writeError(w, r, internal(op, err))
		return
	}
	h.log.WithField("user_id", user.ID).Info("user registered")
	writeJSON(w, http.StatusCreated, authResponse{User: user, Token: token})
}

// Login checks credentials and opens a session.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	const op = "login"
	var req loginRequest
	if err := decodeJSON(r, op, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := apperr.Validate(op, req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.db.GetUserByUsername(r.Context(), req.Username)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.writeError(w, r, internal(op, err))
		return
	}
	if err != nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
		writeStatus(w, http.StatusUnauthorized, "unauthorized", "invalid username or password")
		return
	}

	token, err := h.startSession(w, r, user)
	if err != nil {
		h.writeError(w, r, internal(op, err))
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}

func (h *Handlers) startSession(w http.ResponseWriter, r *http.Request, user *models.User) (string, error) {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return "", err
	}
	if err := h.db.CreateSession(r.Context(), token, user.ID, time.Now().Add(h.sessionDuration)); err != nil {
		return "", err
	}
	h.setSessionCookie(w, token)
	return token, nil
}

// Logout ends the current session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if token, _ := sessionToken(r); token != "" {
		if err := h.db.DeleteSession(r.Context(), token); err != nil {
			h.log.WithError(err).Warn("failed to delete session")
		}
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Profile returns the current user.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, GetUserFromContext(r))
}

// UpdateProfile replaces the editable profile fields.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	const op = "update profile"
	var req profileRequest
	if err := decodeJSON(r, op, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := apperr.Validate(op, req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user := *GetUserFromContext(r)
	user.FullName = strings.TrimSpace(req.FullName)
	user.Email = req.Email
	user.Phone = strings.TrimSpace(req.Phone)
	user.Address = strings.TrimSpace(req.Address)
	if err := h.db.UpdateProfile(r.Context(), &user); err != nil {
		h.writeError(w, r, internal(op, err))
		return
	}
	writeJSON(w, http.StatusOK, &user)
}

// UpdateBalance sets the balance the user started tracking from.
func (h *Handlers) UpdateBalance(w http.ResponseWriter, r *http.Request) {
	const op = "update balance"
	var req balanceRequest
	if err := decodeJSON(r, op, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user := *GetUserFromContext(r)
	if err := h.db.SetOpeningBalance(r.Context(), user.ID, req.OpeningBalance); err != nil {
		h.writeError(w, r, notFoundOr(op, err, "user not found"))
		return
	}
	user.OpeningBalance = req.OpeningBalance
	writeJSON(w, http.StatusOK, &user)
}
