package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	msqlite "modernc.org/sqlite" // The pure Go SQLite driver
	sqlite3lib "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when an owner-scoped lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when an insert hits a unique constraint.
	ErrAlreadyExists = errors.New("record already exists")
)

// TimeLayout is how timestamps are stored. Lexical order equals time order,
// and the date portion is a plain string prefix.
const TimeLayout = "2006-01-02T15:04:05Z"

// Service owns the SQLite connection pool. Writes are serialized through
// Write so that only one transaction holds the database lock at a time.
type Service struct {
	db      *sql.DB
	writeMu sync.Mutex
	log     logrus.FieldLogger
}

// NewService opens the database file at path and verifies the connection.
func NewService(path string, log logrus.FieldLogger) (*Service, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return &Service{db: db, log: log}, nil
}

// DB returns the pool for reads.
func (s *Service) DB() *sql.DB {
	return s.db
}

// Write runs fn inside a transaction while holding the write lock. The
// transaction is rolled back when fn returns an error.
func (s *Service) Write(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *Service) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.log.Info("database connection closed")
	return err
}

// Init creates the schema if it does not exist. Safe to run on every start.
func (s *Service) Init(ctx context.Context) error {
	return s.Write(ctx, func(tx *sql.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("init schema: %w", err)
			}
		}
		return nil
	})
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT,
		email_verified_at TEXT,
		created_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS email_verifications (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		sport_type TEXT NOT NULL,
		event_at TEXT NOT NULL,
		description TEXT,
		image_url TEXT,
		image_path TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_events_owner_event_at ON events (owner_id, event_at);`,
	`CREATE TABLE IF NOT EXISTS venues (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		address TEXT NOT NULL,
		created_at TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_venues_owner ON venues (owner_id);`,
	`CREATE TABLE IF NOT EXISTS event_venues (
		event_id TEXT NOT NULL,
		venue_id TEXT NOT NULL,
		PRIMARY KEY (event_id, venue_id),
		FOREIGN KEY (event_id) REFERENCES events (id),
		FOREIGN KEY (venue_id) REFERENCES venues (id)
	);`,
	`CREATE TABLE IF NOT EXISTS sports (
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL COLLATE NOCASE,
		created_at TEXT NOT NULL,
		PRIMARY KEY (owner_id, name)
	);`,
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", value, err)
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
