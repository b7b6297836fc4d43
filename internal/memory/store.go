package memory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"vidsage/internal/agent"
	"vidsage/internal/logging"
)

// Store is the SQLite-backed fact store. Facts are append-only and
// session-scoped; no fact is visible across session ids. Preferences
// are the only mutable rows.
type Store struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// Open initializes the fact database at the given path, creating the
// directory and schema as needed.
func Open(path string) (*Store, error) {
	log := logging.Get(logging.CategoryMemory)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		log.Debugw("failed to set busy_timeout", "error", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		log.Debugw("failed to set journal_mode=WAL", "error", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		log.Debugw("failed to set synchronous=NORMAL", "error", err)
	}

	s := &Store{db: db, log: log}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	log.Debugw("fact store opened", "path", path)
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS facts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		content TEXT NOT NULL,
		source TEXT NOT NULL,
		relevance REAL NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_facts_session ON facts(session_id, relevance DESC, created_at DESC);

	CREATE TABLE IF NOT EXISTS preferences (
		session_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (session_id, key)
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Append persists one fact for a session. Safe for concurrent use.
func (s *Store) Append(ctx context.Context, sessionID string, f agent.Fact) error {
	ts := f.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO facts (session_id, content, source, relevance, created_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID, f.Content, f.Source, f.Relevance, ts.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to append fact: %w", err)
	}
	return nil
}

// Query returns up to k facts for a session, most relevant first and
// most recent first among equals.
func (s *Store) Query(ctx context.Context, sessionID string, k int) ([]agent.Fact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT content, source, relevance, created_at FROM facts
		 WHERE session_id = ?
		 ORDER BY relevance DESC, created_at DESC
		 LIMIT ?`, sessionID, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query facts: %w", err)
	}
	defer rows.Close()

	var facts []agent.Fact
	for rows.Next() {
		var f agent.Fact
		var ns int64
		if err := rows.Scan(&f.Content, &f.Source, &f.Relevance, &ns); err != nil {
			return nil, fmt.Errorf("failed to scan fact: %w", err)
		}
		f.Timestamp = time.Unix(0, ns)
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// Preferences returns the stored option map for a session.
func (s *Store) Preferences(ctx context.Context, sessionID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM preferences WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}
	defer rows.Close()

	prefs := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}
		prefs[k] = v
	}
	return prefs, rows.Err()
}

// SetPreference stores or replaces one preference for a session.
func (s *Store) SetPreference(ctx context.Context, sessionID, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (session_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(session_id, key) DO UPDATE SET value = excluded.value`,
		sessionID, key, value)
	if err != nil {
		return fmt.Errorf("failed to set preference: %w", err)
	}
	return nil
}

// Teardown removes all facts and preferences for a session. This is the
// only deletion path.
func (s *Store) Teardown(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM facts WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to tear down facts: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM preferences WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to tear down preferences: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
