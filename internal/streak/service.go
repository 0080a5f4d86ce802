package streak

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"spendwise/internal/apperr"
	"spendwise/internal/impulse"
	"spendwise/internal/models"
	"spendwise/internal/storage"
)

// maxAttempts bounds retries after an optimistic version conflict.
const maxAttempts = 3

// Clock returns the current time.
type Clock func() time.Time

// Store is the persistence the service needs. *storage.DB implements it.
type Store interface {
	RunInTx(ctx context.Context, fn func(q storage.Queries) error) error
	GetStreak(ctx context.Context, userID int64) (*models.StreakRecord, error)
	ListTransactions(ctx context.Context, userID int64) ([]models.Transaction, error)
}

// Service applies transactions to streak records and redeems rewards.
// All mutations of one user's record are serialized.
type Service struct {
	store  Store
	clock  Clock
	policy Policy
	log    logrus.FieldLogger
	newID  func() string
	locks  userLocks
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for voucher minting and expiry.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithPolicy sets the voucher validity policy.
func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a Service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		clock:  time.Now,
		policy: DefaultPolicy(),
		log:    logrus.StandardLogger(),
		newID:  newVoucherID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TransactionInput is a transaction as submitted by a user.
type TransactionInput struct {
	Date        time.Time       `json:"date" validate:"required"`
	Description string          `json:"description" validate:"max=200"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category" validate:"required,max=50"`
	Necessity   string          `json:"necessity" validate:"required,oneof=Need Want"`
	TimeOfDay   string          `json:"time_of_day" validate:"required,oneof=Morning Afternoon Evening Night"`
	PaymentMode string          `json:"payment_mode" validate:"required,max=50"`
	SourceApp   string          `json:"source_app" validate:"max=50"`
}

// Applied is the outcome of ApplyNewTransaction.
type Applied struct {
	Transaction models.Transaction   `json:"transaction"`
	Record      *models.StreakRecord `json:"streak"`
	NewVouchers []models.Voucher     `json:"new_vouchers"`
}

// ApplyNewTransaction classifies and stores a transaction, then brings the
// user's streak record up to date with the full history. The insert, the
// counter update and any minted vouchers commit together or not at all.
func (s *Service) ApplyNewTransaction(ctx context.Context, userID int64, in TransactionInput) (*Applied, error) {
	const op = "apply transaction"
	if err := apperr.Validate(op, in); err != nil {
		return nil, err
	}
	if in.Amount.IsZero() {
		return nil, apperr.E(apperr.Validation, op, "amount is required")
	}

	tx := newTransaction(userID, in, s.clock())
	result := impulse.Classify(impulse.FeaturesOf(tx))
	tx.ImpulseProbability = result.Probability
	tx.Impulse = result.Impulse && tx.IsExpense()

	var applied *Applied
	rec, err := s.update(ctx, op, userID, func(q storage.Queries, rec *models.StreakRecord) error {
		t := *tx
		if t.Impulse && rec.PendingFreePasses > 0 {
			t.FreeImpulsePurchase = true
			rec.PendingFreePasses--
		}
		if err := q.CreateTransaction(ctx, &t); err != nil {
			return err
		}
		txs, err := q.ListTransactions(ctx, userID)
		if err != nil {
			return err
		}
		minted := reconcile(rec, ComputeCalendar(txs), s.clock(), s.policy, s.newID)
		applied = &Applied{Transaction: t, NewVouchers: minted}
		return nil
	})
	if err != nil {
		return nil, err
	}
	applied.Record = rec
	if applied.NewVouchers == nil {
		applied.NewVouchers = []models.Voucher{}
	}

	s.log.WithFields(logrus.Fields{
		"user_id":        userID,
		"transaction_id": applied.Transaction.ID,
		"impulse":        applied.Transaction.Impulse,
		"current_streak": rec.CurrentStreak,
		"new_vouchers":   len(applied.NewVouchers),
	}).Debug("transaction applied")
	return applied, nil
}

// RedeemVoucher marks one of the user's vouchers as used.
func (s *Service) RedeemVoucher(ctx context.Context, userID int64, voucherID string) (*models.StreakRecord, error) {
	return s.update(ctx, "redeem voucher", userID, func(_ storage.Queries, rec *models.StreakRecord) error {
		return redeemVoucher(rec, voucherID, s.clock())
	})
}

// RedeemFreeImpulseCredit spends one free impulse purchase credit. The next
// expense the user records is flagged as made with the free pass.
func (s *Service) RedeemFreeImpulseCredit(ctx context.Context, userID int64) (*models.StreakRecord, error) {
	return s.update(ctx, "redeem free impulse purchase", userID, func(_ storage.Queries, rec *models.StreakRecord) error {
		return redeemFreeImpulse(rec)
	})
}

// Recompute rebuilds the user's counters from the full transaction history.
// Running it repeatedly yields the same record and mints nothing new.
func (s *Service) Recompute(ctx context.Context, userID int64) (*models.StreakRecord, []models.Voucher, error) {
	var minted []models.Voucher
	rec, err := s.update(ctx, "recompute streak", userID, func(q storage.Queries, rec *models.StreakRecord) error {
		txs, err := q.ListTransactions(ctx, userID)
		if err != nil {
			return err
		}
		minted = reconcile(rec, ComputeCalendar(txs), s.clock(), s.policy, s.newID)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return rec, minted, nil
}

// Record returns the user's streak record, creating the zero state if absent.
func (s *Service) Record(ctx context.Context, userID int64) (*models.StreakRecord, error) {
	rec, err := s.store.GetStreak(ctx, userID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Wrap(apperr.Internal, "get streak", err, "failed to load streak record")
	}
	return s.update(ctx, "get streak", userID, func(storage.Queries, *models.StreakRecord) error { return nil })
}

// Calendar returns the day-by-day streak calendar for the user.
func (s *Service) Calendar(ctx context.Context, userID int64) ([]DayEntry, error) {
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "streak calendar", err, "failed to load transactions")
	}
	return ComputeCalendar(txs), nil
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.clock()
}

// update runs fn against a private copy of the user's record inside one
// store transaction and saves the copy with a version check. The caller's
// view only changes when the whole unit commits.
func (s *Service) update(ctx context.Context, op string, userID int64, fn func(q storage.Queries, rec *models.StreakRecord) error) (*models.StreakRecord, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	var saved *models.StreakRecord
	for attempt := 1; ; attempt++ {
		err := s.store.RunInTx(ctx, func(q storage.Queries) error {
			rec, err := q.GetStreak(ctx, userID)
			if errors.Is(err, storage.ErrNotFound) {
				rec = models.NewStreakRecord(userID)
			} else if err != nil {
				return err
			}

			work := rec.Clone()
			if err := fn(q, work); err != nil {
				return err
			}
			if err := q.SaveStreak(ctx, work); err != nil {
				return err
			}
			saved = work
			return nil
		})
		switch {
		case err == nil:
			return saved, nil
		case errors.Is(err, storage.ErrStreakConflict) && attempt < maxAttempts:
			s.log.WithFields(logrus.Fields{"user_id": userID, "attempt": attempt}).Warn("streak version conflict, retrying")
			continue
		case apperr.KindOf(err) != apperr.Internal:
			return nil, err
		default:
			return nil, apperr.Wrap(apperr.Internal, op, err, "failed to update streak record")
		}
	}
}

func newTransaction(userID int64, in TransactionInput, now time.Time) *models.Transaction {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		desc = in.Category
	}
	d := in.Date
	return &models.Transaction{
		UserID: userID,
		// Keep the submitted wall clock and drop the zone: days are calendar days
		// as the user wrote them.
		Date:        time.Date(d.Year(), d.Month(), d.Day(), d.Hour(), d.Minute(), d.Second(), 0, time.UTC),
		Description: desc,
		Amount:      in.Amount,
		Category:    strings.TrimSpace(in.Category),
		Necessity:   in.Necessity,
		TimeOfDay:   in.TimeOfDay,
		PaymentMode: strings.TrimSpace(in.PaymentMode),
		SourceApp:   strings.TrimSpace(in.SourceApp),
		CreatedAt:   now,
	}
}

// userLocks hands out one mutex per user.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func (l *userLocks) lock(userID int64) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[int64]*userLock)
	}
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
