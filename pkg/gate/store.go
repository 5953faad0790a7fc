package gate

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DefaultInactivityTimeout is how long a session may go unused before a
// purge removes it.
const DefaultInactivityTimeout = time.Hour

// Store validates session cookies against a SQL database. Queries use
// SQLite-compatible syntax; any database/sql driver supporting the "||"
// concatenation operator works.
//
// Expected schema:
//
//	CREATE TABLE users (
//	    id TEXT PRIMARY KEY,
//	    email TEXT
//	);
//	CREATE TABLE sessions (
//	    id TEXT PRIMARY KEY,
//	    userId TEXT NOT NULL,
//	    gatedArea TEXT NOT NULL,
//	    expirationDate INTEGER NOT NULL,
//	    lastUseDate INTEGER NOT NULL
//	);
//
// Date columns hold Unix seconds.
type Store struct {
	db            *sql.DB
	sessionsTable string
	usersTable    string
	inactivity    time.Duration
	now           func() time.Time
}

// StoreOption configures Store behavior.
type StoreOption func(*Store)

// WithSessionsTable sets the sessions table name. Default: "sessions".
func WithSessionsTable(name string) StoreOption {
	return func(s *Store) {
		s.sessionsTable = name
	}
}

// WithUsersTable sets the users table name. Default: "users".
func WithUsersTable(name string) StoreOption {
	return func(s *Store) {
		s.usersTable = name
	}
}

// WithInactivityTimeout sets how long an unused session stays valid.
// Default: DefaultInactivityTimeout.
func WithInactivityTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		s.inactivity = d
	}
}

// WithNowFunc overrides the clock, for tests.
func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a session store on an open database handle. The
// handle is shared, not owned: closing it is the caller's business.
func NewStore(db *sql.DB, opts ...StoreOption) *Store {
	s := &Store{
		db:            db,
		sessionsTable: "sessions",
		usersTable:    "users",
		inactivity:    DefaultInactivityTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PurgeStale deletes sessions that have expired or idled past the
// inactivity timeout. Runs before every authorization, keeping the table
// clean without a background sweeper.
func (s *Store) PurgeStale(ctx context.Context) error {
	now := s.now().Unix()
	query := fmt.Sprintf(
		`DELETE FROM %s WHERE ? >= expirationDate OR (? - lastUseDate) >= ?`,
		s.sessionsTable)
	_, err := s.db.ExecContext(ctx, query, now, now, int64(s.inactivity.Seconds()))
	return err
}

// Authorize reports whether cookie, of the form "<userId>.<sessionId>",
// names a live session of a known user for the given area.
func (s *Store) Authorize(ctx context.Context, areaID, cookie string) (bool, error) {
	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM %s JOIN %s ON %s.userId = %s.id
		 WHERE gatedArea = ? AND %s.id || '.' || %s.id = ?`,
		s.sessionsTable, s.usersTable, s.sessionsTable, s.usersTable,
		s.usersTable, s.sessionsTable)

	var count int
	if err := s.db.QueryRowContext(ctx, query, areaID, cookie).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// Touch refreshes the last-use time of the session the cookie names.
func (s *Store) Touch(ctx context.Context, cookie string) error {
	query := fmt.Sprintf(
		`UPDATE %s SET lastUseDate = ? WHERE ? LIKE '%%' || id`,
		s.sessionsTable)
	_, err := s.db.ExecContext(ctx, query, s.now().Unix(), cookie)
	return err
}

// CreateTables creates the users and sessions tables if missing.
// A convenience for development and tests.
func (s *Store) CreateTables(ctx context.Context) error {
	queries := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			email TEXT
		)`, s.usersTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			userId TEXT NOT NULL,
			gatedArea TEXT NOT NULL,
			expirationDate INTEGER NOT NULL,
			lastUseDate INTEGER NOT NULL
		)`, s.sessionsTable),
	}
	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}
