// Package store holds the client's durable state: the captured auth token
// and user preferences. Backed by a small SQLite database so that writers
// leave either a fully valid record or nothing at all.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// MaxTokenAge is the retention ceiling for a persisted token. A token older
// than this (by capture timestamp) is purged regardless of its own expiry claim.
const MaxTokenAge = 24 * time.Hour

// tokenKey is the fixed name the auth token record is stored under.
const tokenKey = "auth_token"

// ErrNotFound is returned when no record exists for the requested key.
var ErrNotFound = errors.New("store: not found")

// TokenRecord is a persisted token together with the time it was captured.
type TokenRecord struct {
	Token      string
	CapturedAt time.Time
}

// Store wraps the SQLite database holding client state.
type Store struct {
	conn *sql.DB
	now  func() time.Time
}

// Open creates the state directory if needed and opens the database.
func Open(stateDir string) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	dbPath := filepath.Join(stateDir, "state.db")
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{conn: conn, now: time.Now}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS auth_state (
		name TEXT PRIMARY KEY,
		token TEXT NOT NULL,
		captured_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// SaveToken persists the token with the current time as its capture
// timestamp. A single upsert, so readers never observe a partial record.
func (s *Store) SaveToken(token string) error {
	if token == "" {
		return errors.New("store: empty token")
	}
	_, err := s.conn.Exec(
		`INSERT INTO auth_state (name, token, captured_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET token = excluded.token, captured_at = excluded.captured_at`,
		tokenKey, token, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// LoadToken returns the persisted token record. A record older than
// MaxTokenAge is purged and reported as missing.
func (s *Store) LoadToken() (*TokenRecord, error) {
	var token string
	var capturedAt int64
	err := s.conn.QueryRow(
		`SELECT token, captured_at FROM auth_state WHERE name = ?`, tokenKey,
	).Scan(&token, &capturedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}

	rec := &TokenRecord{Token: token, CapturedAt: time.Unix(capturedAt, 0)}
	if s.now().Sub(rec.CapturedAt) > MaxTokenAge {
		if err := s.ClearToken(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return rec, nil
}

// ClearToken removes any persisted token. Safe to call when none exists.
func (s *Store) ClearToken() error {
	_, err := s.conn.Exec(`DELETE FROM auth_state WHERE name = ?`, tokenKey)
	if err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// GetPreference returns the stored value for key, or ErrNotFound.
func (s *Store) GetPreference(key string) (string, error) {
	var value string
	err := s.conn.QueryRow(`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get preference: %w", err)
	}
	return value, nil
}

// SetPreference stores or replaces the value for key.
func (s *Store) SetPreference(key, value string) error {
	_, err := s.conn.Exec(
		`INSERT INTO preferences (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	return nil
}
