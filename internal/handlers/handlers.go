package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"spendwise/internal/apperr"
	"spendwise/internal/models"
	"spendwise/internal/storage"
	"spendwise/internal/streak"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// DefaultSessionDuration is how long sessions last unless configured (30 days).
	DefaultSessionDuration = 30 * 24 * time.Hour

	maxBodyBytes = 1 << 20
)

// Options configures Handlers.
type Options struct {
	SecureCookie    bool
	SessionDuration time.Duration
	Logger          logrus.FieldLogger
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db              *storage.DB
	streaks         *streak.Service
	log             logrus.FieldLogger
	secureCookie    bool
	sessionDuration time.Duration
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *storage.DB, streaks *streak.Service, opts Options) *Handlers {
	h := &Handlers{
		db:              db,
		streaks:         streaks,
		log:             opts.Logger,
		secureCookie:    opts.SecureCookie,
		sessionDuration: opts.SessionDuration,
	}
	if h.log == nil {
		h.log = logrus.StandardLogger()
	}
	if h.sessionDuration <= 0 {
		h.sessionDuration = DefaultSessionDuration
	}
	return h
}

// Routes mounts the API on r. Everything except registration and login
// requires a session.
func (h *Handlers) Routes(r chi.Router) {
	r.Post("/users/register", h.Register)
	r.Post("/users/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware)

		r.Post("/users/logout", h.Logout)
		r.Get("/users/profile", h.Profile)
		r.Put("/users/profile", h.UpdateProfile)
		r.Patch("/users/balance", h.UpdateBalance)

		r.Get("/transactions", h.ListTransactions)
		r.Post("/transactions", h.CreateTransaction)
		r.Get("/transactions/{id}", h.GetTransaction)

		r.Get("/streaks/me", h.GetStreak)
		r.Post("/streaks/vouchers/{id}/redeem", h.RedeemVoucher)
		r.Post("/streaks/free-impulse/redeem", h.RedeemFreeImpulse)
		r.Post("/streaks/recompute", h.RecomputeStreak)

		r.Get("/dashboard", h.Dashboard)
		r.Get("/budget-summary", h.BudgetSummary)
		r.Get("/stats", h.Statistics)
		r.Get("/analytics/streak-calendar", h.StreakCalendar)
		r.Get("/analytics/streak-impact", h.StreakImpact)
		r.Get("/analytics/rewards", h.RewardStats)

		r.Get("/challenges", h.ListChallenges)
		r.Post("/challenges", h.CreateChallenge)
		r.Put("/challenges/{id}/progress", h.UpdateChallengeProgress)
	})
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// sessionToken reads the token from the session cookie or a bearer header.
func sessionToken(r *http.Request) (token string, fromCookie bool) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")), false
	}
	return "", false
}

// AuthMiddleware wraps handlers to require authentication.
// It also implements rolling sessions: if a session is past the halfway point
// of its lifetime, it automatically renews the session.
func (h *Handlers) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, fromCookie := sessionToken(r)
		if token == "" {
			writeStatus(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}

		sessionInfo, err := h.db.ValidateSessionWithInfo(r.Context(), token)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				h.log.WithError(err).Error("failed to validate session")
			}
			if fromCookie {
				h.clearSessionCookie(w)
			}
			writeStatus(w, http.StatusUnauthorized, "unauthorized", "session is invalid or expired")
			return
		}

		// Rolling session: renew if past halfway point
		now := time.Now()
		if sessionInfo.ExpiresAt.Sub(now) < h.sessionDuration/2 {
			newExpiresAt := now.Add(h.sessionDuration)
			if err := h.db.RenewSession(r.Context(), token, newExpiresAt); err != nil {
				h.log.WithError(err).Warn("failed to renew session")
			} else if fromCookie {
				h.setSessionCookie(w, token)
			}
		}

		ctx := context.WithValue(r.Context(), UserContextKey, sessionInfo.User)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: kind, Message: message})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.InvalidState:
		return http.StatusConflict
	case apperr.Validation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a domain error to a response. Internal errors are logged
// with their cause and reported without it.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		h.log.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
	}
	writeStatus(w, statusFor(kind), string(kind), apperr.Message(err))
}

// decodeJSON reads a JSON body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, op string, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.E(apperr.Validation, op, "request body is required")
		}
		return apperr.E(apperr.Validation, op, "invalid request body: %v", err)
	}
	return nil
}

// internal wraps a storage failure so its details stay in the logs.
func internal(op string, err error) error {
	return apperr.Wrap(apperr.Internal, op, err, "internal server error")
}

// notFoundOr maps storage.ErrNotFound to a NotFound error with msg.
func notFoundOr(op string, err error, msg string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.E(apperr.NotFound, op, "%s", msg)
	}
	return internal(op, err)
}
