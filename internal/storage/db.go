package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"spendwise/internal/models"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrStreakConflict is returned when a streak record changed since it was read.
	ErrStreakConflict = errors.New("streak record was modified concurrently")

	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("record already exists")
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries holds every statement so the same code runs inside and outside a transaction.
type queries struct {
	q queryer
}

// DB wraps a sql.DB connection.
type DB struct {
	queries
	conn *sql.DB
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite allows one writer; a single connection also keeps ":memory:" databases shared.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{queries: queries{q: conn}, conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`PRAGMA busy_timeout = 5000`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			full_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			opening_balance TEXT NOT NULL DEFAULT '0',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			expires_at DATETIME NOT NULL,
			last_activity DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id),
			date DATETIME NOT NULL,
			description TEXT NOT NULL,
			amount TEXT NOT NULL,
			category TEXT NOT NULL,
			necessity TEXT NOT NULL,
			time_of_day TEXT NOT NULL,
			payment_mode TEXT NOT NULL,
			source_app TEXT NOT NULL DEFAULT '',
			impulse INTEGER NOT NULL DEFAULT 0,
			impulse_probability REAL NOT NULL DEFAULT 0,
			free_impulse_purchase INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions (user_id, date)`,
		`CREATE TABLE IF NOT EXISTS streaks (
			user_id INTEGER PRIMARY KEY REFERENCES users(id),
			current_streak INTEGER NOT NULL DEFAULT 0,
			longest_streak INTEGER NOT NULL DEFAULT 0,
			completed_streaks INTEGER NOT NULL DEFAULT 0,
			free_impulse_purchases INTEGER NOT NULL DEFAULT 0,
			pending_free_passes INTEGER NOT NULL DEFAULT 0,
			last_non_impulse_date DATETIME,
			streak_reset_date DATETIME,
			version INTEGER NOT NULL DEFAULT 1,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS vouchers (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES streaks(user_id),
			type TEXT NOT NULL,
			milestone_date TEXT NOT NULL,
			earned_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL,
			used INTEGER NOT NULL DEFAULT 0,
			used_at DATETIME,
			seq INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_vouchers_user ON vouchers (user_id, seq)`,
		`CREATE TABLE IF NOT EXISTS challenges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id),
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			points INTEGER NOT NULL DEFAULT 0,
			category TEXT NOT NULL DEFAULT 'Other',
			status TEXT NOT NULL,
			target_amount TEXT NOT NULL,
			current_amount TEXT NOT NULL DEFAULT '0',
			start_date DATETIME NOT NULL,
			end_date DATETIME,
			completed_date DATETIME
		)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Queries is the set of statements available inside a transaction.
type Queries interface {
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	ListTransactions(ctx context.Context, userID int64) ([]models.Transaction, error)
	GetStreak(ctx context.Context, userID int64) (*models.StreakRecord, error)
	SaveStreak(ctx context.Context, rec *models.StreakRecord) error
	GetChallenge(ctx context.Context, userID, id int64) (*models.Challenge, error)
	UpdateChallenge(ctx context.Context, c *models.Challenge) error
}

// RunInTx runs fn inside a database transaction. Any error from fn rolls
// everything back.
func (db *DB) RunInTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(queries{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
