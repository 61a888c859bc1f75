/*
Package sqlite provides the bot's SQLite-backed persistence.

PURPOSE:
  Three small tables keep the bot stateless across restarts:

  sessions:     one in-flight conversation per user (step + collected input)
  credentials:  encrypted per-user Jira credentials (ciphertext only - the
                auth package encrypts before handing values to the store)
  report_runs:  audit log of generated reports, newest first

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite. Opened with WAL so
  readers don't block the writer.

MIGRATION:
  Schema is auto-migrated on New(). Use ":memory:" in tests.

SEE ALSO:
  - auth/vault.go: the credential encryption layer above this store
  - bot/session.go: the conversation state persisted here
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrSessionNotFound is returned when a user has no in-flight session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrCredentialsNotFound is returned when a user has no stored credentials.
	ErrCredentialsNotFound = errors.New("credentials not found")
)

// =============================================================================
// RECORDS
// =============================================================================

// SessionRecord is one user's in-flight conversation state.
type SessionRecord struct {
	UserID      string
	ChannelID   string
	Step        string
	Email       string // pending Jira email during the login flow
	ProjectKeys []string
	PeriodStart string // YYYY-MM-DD, empty until the period step completes
	PeriodEnd   string
	UpdatedAt   time.Time
}

// CredentialRecord holds a user's encrypted Jira credentials. Both fields
// are ciphertext; decryption happens in the auth package.
type CredentialRecord struct {
	UserID         string
	EmailCipher    string
	APITokenCipher string
	UpdatedAt      time.Time
}

// ReportRun is one entry of the report audit log.
type ReportRun struct {
	ID          string
	UserID      string
	Projects    string // comma-joined project keys
	PeriodStart string
	PeriodEnd   string
	RowCount    int
	TotalHours  string
	Filename    string
	CreatedAt   time.Time
}

// =============================================================================
// STORE
// =============================================================================

// Store implements session, credential and report-run persistence.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- In-flight conversations, one per user
	CREATE TABLE IF NOT EXISTS sessions (
		user_id TEXT PRIMARY KEY,
		channel_id TEXT NOT NULL,
		step TEXT NOT NULL,
		email TEXT,
		projects_json TEXT,
		period_start TEXT,
		period_end TEXT,
		updated_at TEXT NOT NULL
	);

	-- Encrypted Jira credentials, one row per user
	CREATE TABLE IF NOT EXISTS credentials (
		user_id TEXT PRIMARY KEY,
		email_cipher TEXT NOT NULL,
		api_token_cipher TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Audit log of generated reports
	CREATE TABLE IF NOT EXISTS report_runs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		projects TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		total_hours TEXT NOT NULL,
		filename TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_report_runs_created
		ON report_runs(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_report_runs_user
		ON report_runs(user_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SESSIONS
// =============================================================================

// SaveSession inserts or replaces a user's session.
func (s *Store) SaveSession(ctx context.Context, rec SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	projectsJSON, err := json.Marshal(rec.ProjectKeys)
	if err != nil {
		return fmt.Errorf("failed to encode project keys: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions
		(user_id, channel_id, step, email, projects_json, period_start, period_end, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID,
		rec.ChannelID,
		rec.Step,
		rec.Email,
		string(projectsJSON),
		rec.PeriodStart,
		rec.PeriodEnd,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession returns a user's session or ErrSessionNotFound.
func (s *Store) GetSession(ctx context.Context, userID string) (SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, channel_id, step, email, projects_json, period_start, period_end, updated_at
		FROM sessions WHERE user_id = ?`, userID)

	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, ErrSessionNotFound
	}
	return rec, err
}

// ListSessions returns every in-flight session.
func (s *Store) ListSessions(ctx context.Context) ([]SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, channel_id, step, email, projects_json, period_start, period_end, updated_at
		FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, rec)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a user's session. Missing sessions are not an error.
func (s *Store) DeleteSession(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CountSessions returns the number of in-flight sessions.
func (s *Store) CountSessions(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (SessionRecord, error) {
	var rec SessionRecord
	var projectsJSON, updatedAt string
	err := row.Scan(&rec.UserID, &rec.ChannelID, &rec.Step, &rec.Email,
		&projectsJSON, &rec.PeriodStart, &rec.PeriodEnd, &updatedAt)
	if err != nil {
		return SessionRecord{}, err
	}
	if projectsJSON != "" {
		if err := json.Unmarshal([]byte(projectsJSON), &rec.ProjectKeys); err != nil {
			return SessionRecord{}, fmt.Errorf("failed to decode project keys: %w", err)
		}
	}
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return rec, nil
}

// =============================================================================
// CREDENTIALS
// =============================================================================

// SaveCredentials inserts or replaces a user's encrypted credentials.
func (s *Store) SaveCredentials(ctx context.Context, rec CredentialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO credentials
		(user_id, email_cipher, api_token_cipher, updated_at)
		VALUES (?, ?, ?, ?)`,
		rec.UserID,
		rec.EmailCipher,
		rec.APITokenCipher,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// GetCredentials returns a user's encrypted credentials or
// ErrCredentialsNotFound.
func (s *Store) GetCredentials(ctx context.Context, userID string) (CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec CredentialRecord
	var updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, email_cipher, api_token_cipher, updated_at
		FROM credentials WHERE user_id = ?`, userID).
		Scan(&rec.UserID, &rec.EmailCipher, &rec.APITokenCipher, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return CredentialRecord{}, ErrCredentialsNotFound
	}
	if err != nil {
		return CredentialRecord{}, fmt.Errorf("failed to load credentials: %w", err)
	}
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return rec, nil
}

// DeleteCredentials removes a user's stored credentials.
func (s *Store) DeleteCredentials(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

// CountCredentials returns the number of users with stored credentials.
func (s *Store) CountCredentials(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM credentials`).Scan(&count)
	return count, err
}

// =============================================================================
// REPORT RUNS
// =============================================================================

// RecordReportRun appends one entry to the report audit log.
func (s *Store) RecordReportRun(ctx context.Context, run ReportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO report_runs
		(id, user_id, projects, period_start, period_end, row_count, total_hours, filename, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.UserID,
		run.Projects,
		run.PeriodStart,
		run.PeriodEnd,
		run.RowCount,
		run.TotalHours,
		run.Filename,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record report run: %w", err)
	}
	return nil
}

// RecentReportRuns returns up to limit runs, newest first.
func (s *Store) RecentReportRuns(ctx context.Context, limit int) ([]ReportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, projects, period_start, period_end, row_count, total_hours, filename, created_at
		FROM report_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query report runs: %w", err)
	}
	defer rows.Close()

	var runs []ReportRun
	for rows.Next() {
		var run ReportRun
		var createdAt string
		if err := rows.Scan(&run.ID, &run.UserID, &run.Projects,
			&run.PeriodStart, &run.PeriodEnd, &run.RowCount,
			&run.TotalHours, &run.Filename, &createdAt); err != nil {
			return nil, err
		}
		run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// CountReportRuns returns the total number of generated reports.
func (s *Store) CountReportRuns(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM report_runs`).Scan(&count)
	return count, err
}
