package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"spendwise/internal/auth"
	"spendwise/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// DBTestSuite provides a test suite for database operations
type DBTestSuite struct {
	suite.Suite
	db   *DB
	ctx  context.Context
	user *models.User
}

// SetupTest runs before each test
func (suite *DBTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.ctx = context.Background()

	user, err := suite.db.CreateUser(suite.ctx, NewUser{Username: "saver", PasswordHash: "x"})
	require.NoError(suite.T(), err, "failed to create test user")
	suite.user = user
}

// TearDownTest runs after each test
func (suite *DBTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *DBTestSuite) newTransaction(date time.Time, amount string, description string) *models.Transaction {
	tx := &models.Transaction{
		UserID:      suite.user.ID,
		Date:        date,
		Description: description,
		Amount:      decimal.RequireFromString(amount),
		Category:    "Groceries",
		Necessity:   models.Need,
		TimeOfDay:   "Morning",
		PaymentMode: "Cash",
	}
	require.NoError(suite.T(), suite.db.CreateTransaction(suite.ctx, tx), "failed to create transaction: %s", description)
	return tx
}

func (suite *DBTestSuite) TestCreateUser() {
	assert.NotZero(suite.T(), suite.user.ID)
	assert.True(suite.T(), suite.user.OpeningBalance.IsZero())

	_, err := suite.db.CreateUser(suite.ctx, NewUser{Username: "saver", PasswordHash: "y"})
	assert.ErrorIs(suite.T(), err, ErrDuplicate)

	count, err := suite.db.UserCount(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)
}

func (suite *DBTestSuite) TestUpdateProfileAndBalance() {
	u := *suite.user
	u.FullName = "Sam Saver"
	u.Email = "sam@example.com"
	u.Phone = "555-0100"
	require.NoError(suite.T(), suite.db.UpdateProfile(suite.ctx, &u))
	require.NoError(suite.T(), suite.db.SetOpeningBalance(suite.ctx, u.ID, decimal.RequireFromString("1250.75")))

	got, err := suite.db.GetUserByID(suite.ctx, u.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Sam Saver", got.FullName)
	assert.Equal(suite.T(), "sam@example.com", got.Email)
	assert.Equal(suite.T(), "1250.75", got.OpeningBalance.String())

	err = suite.db.SetOpeningBalance(suite.ctx, 999, decimal.Zero)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	_, err = suite.db.GetUserByUsername(suite.ctx, "nobody")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestCreateTransaction() {
	tx := suite.newTransaction(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), "-10.50", "Lunch")
	assert.NotZero(suite.T(), tx.ID)

	got, err := suite.db.GetTransaction(suite.ctx, suite.user.ID, tx.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Lunch", got.Description)
	assert.True(suite.T(), got.Amount.Equal(decimal.RequireFromString("-10.5")))
	assert.True(suite.T(), got.Date.Equal(tx.Date))
	assert.False(suite.T(), got.CreatedAt.IsZero())

	_, err = suite.db.GetTransaction(suite.ctx, suite.user.ID+1, tx.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound, "other users cannot see the transaction")
}

func (suite *DBTestSuite) TestCreateMultipleTransactionsWithSameTimestamp() {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	// No unique constraint on the date, so both inserts succeed
	first := suite.newTransaction(now, "-10", "First")
	second := suite.newTransaction(now, "-20", "Second")
	assert.NotEqual(suite.T(), first.ID, second.ID)
}

func (suite *DBTestSuite) TestListTransactionsOrder() {
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	suite.newTransaction(base.Add(2*time.Hour), "-5", "Coffee")
	suite.newTransaction(base, "-20", "Bus")
	suite.newTransaction(base.Add(2*time.Hour), "-15", "Snack")

	all, err := suite.db.ListTransactions(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), all, 3)
	assert.Equal(suite.T(), []string{"Bus", "Coffee", "Snack"}, descriptions(all), "oldest first, ties by id")

	recent, err := suite.db.RecentTransactions(suite.ctx, suite.user.ID, 2)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"Snack", "Coffee"}, descriptions(recent), "newest first")

	none, err := suite.db.ListTransactions(suite.ctx, suite.user.ID+1)
	require.NoError(suite.T(), err)
	assert.NotNil(suite.T(), none)
	assert.Empty(suite.T(), none)
}

func (suite *DBTestSuite) TestTransactionsBetween() {
	march := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	suite.newTransaction(march.AddDate(0, 0, -1), "-200", "Last Month")
	suite.newTransaction(march, "-100", "Current Month 1")
	suite.newTransaction(march.AddDate(0, 0, 30).Add(23*time.Hour), "-150", "Current Month 2")
	suite.newTransaction(march.AddDate(0, 1, 0), "-300", "Next Month")

	txs, err := suite.db.TransactionsBetween(suite.ctx, suite.user.ID, march, march.AddDate(0, 1, 0))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"Current Month 2", "Current Month 1"}, descriptions(txs))
}

func (suite *DBTestSuite) TestCountFreeImpulseTransactions() {
	suite.newTransaction(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), "-10", "Plain")
	free := &models.Transaction{
		UserID: suite.user.ID, Date: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
		Description: "Treat", Amount: decimal.NewFromInt(-40), Category: "Dining",
		Necessity: models.Want, TimeOfDay: "Night", PaymentMode: "Card",
		Impulse: true, FreeImpulsePurchase: true,
	}
	require.NoError(suite.T(), suite.db.CreateTransaction(suite.ctx, free))

	n, err := suite.db.CountFreeImpulseTransactions(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, n)
}

func (suite *DBTestSuite) TestSaveStreakVersioning() {
	_, err := suite.db.GetStreak(suite.ctx, suite.user.ID)
	require.ErrorIs(suite.T(), err, ErrNotFound)

	rec := models.NewStreakRecord(suite.user.ID)
	rec.CurrentStreak = 7
	rec.LongestStreak = 7
	rec.CompletedStreaks = 1
	day := time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)
	rec.LastNonImpulseDate = &day
	rec.Vouchers = []models.Voucher{{
		ID: "v1", Type: models.VoucherWeekly, MilestoneDate: "2025-03-07",
		EarnedAt: day, ExpiresAt: day.Add(14 * 24 * time.Hour),
	}}
	require.NoError(suite.T(), suite.db.SaveStreak(suite.ctx, rec))
	assert.Equal(suite.T(), int64(1), rec.Version)

	stale, err := suite.db.GetStreak(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 7, stale.CurrentStreak)
	require.NotNil(suite.T(), stale.LastNonImpulseDate)
	assert.True(suite.T(), day.Equal(*stale.LastNonImpulseDate))
	assert.Nil(suite.T(), stale.StreakResetDate)
	require.Len(suite.T(), stale.Vouchers, 1)

	fresh := stale.Clone()
	used := day.Add(time.Hour)
	fresh.Vouchers[0].Used = true
	fresh.Vouchers[0].UsedAt = &used
	require.NoError(suite.T(), suite.db.SaveStreak(suite.ctx, fresh))
	assert.Equal(suite.T(), int64(2), fresh.Version)

	stale.CurrentStreak = 99
	err = suite.db.SaveStreak(suite.ctx, stale)
	assert.ErrorIs(suite.T(), err, ErrStreakConflict, "a stale version is rejected")

	got, err := suite.db.GetStreak(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 7, got.CurrentStreak)
	assert.Equal(suite.T(), int64(2), got.Version)
	require.Len(suite.T(), got.Vouchers, 1)
	assert.True(suite.T(), got.Vouchers[0].Used)
	require.NotNil(suite.T(), got.Vouchers[0].UsedAt)

	dup := models.NewStreakRecord(suite.user.ID)
	assert.ErrorIs(suite.T(), suite.db.SaveStreak(suite.ctx, dup), ErrStreakConflict, "a second insert loses")
}

func (suite *DBTestSuite) TestRunInTxRollsBack() {
	boom := errors.New("boom")
	err := suite.db.RunInTx(suite.ctx, func(q Queries) error {
		tx := &models.Transaction{
			UserID: suite.user.ID, Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			Description: "Ghost", Amount: decimal.NewFromInt(-1), Category: "Other",
			Necessity: models.Need, TimeOfDay: "Morning", PaymentMode: "Cash",
		}
		if err := q.CreateTransaction(suite.ctx, tx); err != nil {
			return err
		}
		if err := q.SaveStreak(suite.ctx, models.NewStreakRecord(suite.user.ID)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(suite.T(), err, boom)

	txs, err := suite.db.ListTransactions(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), txs)
	_, err = suite.db.GetStreak(suite.ctx, suite.user.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestChallenges() {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	c := &models.Challenge{
		UserID:        suite.user.ID,
		Title:         "No takeout",
		Points:        50,
		Category:      "Dining",
		Status:        models.ChallengeActive,
		TargetAmount:  decimal.NewFromInt(300),
		CurrentAmount: decimal.Zero,
		StartDate:     start,
	}
	require.NoError(suite.T(), suite.db.CreateChallenge(suite.ctx, c))
	assert.NotZero(suite.T(), c.ID)

	c.AddProgress(decimal.NewFromInt(300), start.AddDate(0, 0, 3))
	require.NoError(suite.T(), suite.db.UpdateChallenge(suite.ctx, c))

	got, err := suite.db.GetChallenge(suite.ctx, suite.user.ID, c.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.ChallengeCompleted, got.Status)
	assert.Equal(suite.T(), "300", got.CurrentAmount.String())
	assert.Nil(suite.T(), got.EndDate)
	require.NotNil(suite.T(), got.CompletedDate)

	_, err = suite.db.GetChallenge(suite.ctx, suite.user.ID+1, c.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	list, err := suite.db.ListChallenges(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), list, 1)
}

func descriptions(txs []models.Transaction) []string {
	out := make([]string, len(txs))
	for i, t := range txs {
		out[i] = t.Description
	}
	return out
}

// SessionTestSuite provides a test suite for session operations
type SessionTestSuite struct {
	suite.Suite
	db   *DB
	ctx  context.Context
	user *models.User
}

// SetupTest runs before each test
func (suite *SessionTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.ctx = context.Background()

	// Create a test user
	password, err := auth.HashPassword("testpass")
	require.NoError(suite.T(), err, "failed to hash password")

	user, err := suite.db.CreateUser(suite.ctx, NewUser{Username: "testuser", PasswordHash: password})
	require.NoError(suite.T(), err, "failed to create test user")
	suite.user = user
}

// TearDownTest runs after each test
func (suite *SessionTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *SessionTestSuite) TestCreateAndValidateSession() {
	token, err := auth.GenerateSessionToken()
	require.NoError(suite.T(), err)

	expiresAt := time.Now().Add(30 * 24 * time.Hour)
	err = suite.db.CreateSession(suite.ctx, token, suite.user.ID, expiresAt)
	require.NoError(suite.T(), err)

	// Validate the session
	sessionUser, err := suite.db.ValidateSession(suite.ctx, token)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "testuser", sessionUser.Username)
}

func (suite *SessionTestSuite) TestValidateSessionWithInfo() {
	token, err := auth.GenerateSessionToken()
	require.NoError(suite.T(), err)

	expiresAt := time.Now().Add(30 * 24 * time.Hour)
	err = suite.db.CreateSession(suite.ctx, token, suite.user.ID, expiresAt)
	require.NoError(suite.T(), err)

	// Get session info
	info, err := suite.db.ValidateSessionWithInfo(suite.ctx, token)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "testuser", info.User.Username)

	// Check that last_activity is recent
	timeSinceActivity := time.Since(info.LastActivity)
	assert.Less(suite.T(), timeSinceActivity, 5*time.Second, "LastActivity should be recent")
}

func (suite *SessionTestSuite) TestExpiredSession() {
	err := suite.db.CreateSession(suite.ctx, "expired", suite.user.ID, time.Now().Add(-time.Minute))
	require.NoError(suite.T(), err)

	_, err = suite.db.ValidateSession(suite.ctx, "expired")
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	_, err = suite.db.ValidateSession(suite.ctx, "never-issued")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *SessionTestSuite) TestRenewSession() {
	token, err := auth.GenerateSessionToken()
	require.NoError(suite.T(), err)

	originalExpiry := time.Now().Add(30 * 24 * time.Hour)
	err = suite.db.CreateSession(suite.ctx, token, suite.user.ID, originalExpiry)
	require.NoError(suite.T(), err)

	// Wait a moment to ensure timestamps differ
	time.Sleep(10 * time.Millisecond)

	// Get original session info
	originalInfo, err := suite.db.ValidateSessionWithInfo(suite.ctx, token)
	require.NoError(suite.T(), err)

	// Renew the session
	newExpiry := time.Now().Add(60 * 24 * time.Hour)
	err = suite.db.RenewSession(suite.ctx, token, newExpiry)
	require.NoError(suite.T(), err)

	// Get updated session info
	updatedInfo, err := suite.db.ValidateSessionWithInfo(suite.ctx, token)
	require.NoError(suite.T(), err)

	// Verify last_activity was updated
	assert.True(suite.T(), updatedInfo.LastActivity.After(originalInfo.LastActivity),
		"LastActivity should be updated after renewal")

	// Verify expires_at was updated
	assert.True(suite.T(), updatedInfo.ExpiresAt.After(originalInfo.ExpiresAt),
		"ExpiresAt should be extended after renewal")
}

func (suite *SessionTestSuite) TestDeleteSession() {
	token, err := auth.GenerateSessionToken()
	require.NoError(suite.T(), err)

	expiresAt := time.Now().Add(30 * 24 * time.Hour)
	err = suite.db.CreateSession(suite.ctx, token, suite.user.ID, expiresAt)
	require.NoError(suite.T(), err)

	// Verify session exists
	_, err = suite.db.ValidateSession(suite.ctx, token)
	require.NoError(suite.T(), err, "session should exist before deletion")

	// Delete session
	err = suite.db.DeleteSession(suite.ctx, token)
	require.NoError(suite.T(), err)

	// Verify session is gone
	_, err = suite.db.ValidateSession(suite.ctx, token)
	assert.Error(suite.T(), err, "expected error after deleting session")
}

func (suite *SessionTestSuite) TestCleanExpiredSessions() {
	require.NoError(suite.T(), suite.db.CreateSession(suite.ctx, "old", suite.user.ID, time.Now().Add(-time.Hour)))
	require.NoError(suite.T(), suite.db.CreateSession(suite.ctx, "live", suite.user.ID, time.Now().Add(time.Hour)))

	n, err := suite.db.CleanExpiredSessions(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), n)

	_, err = suite.db.ValidateSession(suite.ctx, "live")
	assert.NoError(suite.T(), err)
}

// Test suite runners
func TestDBSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}
