package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"crosslake-dev/strait/pkg/gateway/types"
)

// Schema creates the session table and the owner-fingerprint index used by
// the session-listing endpoint.
const Schema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
    session_id        TEXT PRIMARY KEY,
    history           TEXT NOT NULL,
    owner_fingerprint TEXT NOT NULL,
    created_at        TIMESTAMP NOT NULL,
    updated_at        TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_sessions_owner_fingerprint
    ON chat_sessions (owner_fingerprint);
`

// SQLiteConfig configures the SQLite session store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns bounds the connection pool so the store cannot exhaust
	// the host's concurrency budget. Default: 10.
	MaxOpenConns int

	// MaxIdleConns is the idle connection count. Default: 5.
	MaxIdleConns int

	// WALMode enables write-ahead logging for concurrent readers.
	// Default: true.
	WALMode bool

	// BusyTimeout is how long to wait on a locked database. Default: 5s.
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default store configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/sessions.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens the database, configures the pool, and creates the
// schema if needed.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "session.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("session: open %q: %w", config.Path, err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("session store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("session: enable WAL: %w", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return fmt.Errorf("session: set busy_timeout: %w", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("session: create schema: %w", err)
	}
	return nil
}

// Create inserts a new session row owned by ownerFingerprint.
func (s *SQLiteStore) Create(ctx context.Context, sessionID string, history []types.ChatMessage, ownerFingerprint string) error {
	encoded, err := encodeHistory(history)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (session_id, history, owner_fingerprint, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sessionID, encoded, ownerFingerprint, now, now,
	)
	if err != nil {
		return fmt.Errorf("session: create %q: %w", sessionID, err)
	}

	s.logger.Debug("session created", "session_id", sessionID)
	return nil
}

// Load fetches a session row. Returns ErrNotFound for unknown ids.
func (s *SQLiteStore) Load(ctx context.Context, sessionID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT history, owner_fingerprint, created_at, updated_at
		 FROM chat_sessions WHERE session_id = ?`,
		sessionID,
	)

	var (
		encoded   string
		owner     string
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&encoded, &owner, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: load %q: %w", sessionID, err)
	}

	history, err := decodeHistory(encoded)
	if err != nil {
		return nil, err
	}

	return &Record{
		SessionID:        sessionID,
		History:          history,
		OwnerFingerprint: owner,
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
	}, nil
}

// ReplaceHistory overwrites the stored history. Last writer wins.
func (s *SQLiteStore) ReplaceHistory(ctx context.Context, sessionID string, history []types.ChatMessage) error {
	encoded, err := encodeHistory(history)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET history = ?, updated_at = ? WHERE session_id = ?`,
		encoded, time.Now().UTC(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("session: replace history %q: %w", sessionID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByOwner returns all session ids owned by the given fingerprint.
func (s *SQLiteStore) ListByOwner(ctx context.Context, ownerFingerprint string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id FROM chat_sessions WHERE owner_fingerprint = ? ORDER BY created_at`,
		ownerFingerprint,
	)
	if err != nil {
		return nil, fmt.Errorf("session: list by owner: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("session: scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PruneOlderThan deletes sessions whose last update predates cutoff.
// Returns the number of deleted rows.
func (s *SQLiteStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM chat_sessions WHERE updated_at < ?`, cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("session: prune: %w", err)
	}
	return result.RowsAffected()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func encodeHistory(history []types.ChatMessage) (string, error) {
	if history == nil {
		history = []types.ChatMessage{}
	}
	encoded, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("session: encode history: %w", err)
	}
	return string(encoded), nil
}

func decodeHistory(encoded string) ([]types.ChatMessage, error) {
	if encoded == "" {
		return nil, nil
	}
	var history []types.ChatMessage
	if err := json.Unmarshal([]byte(encoded), &history); err != nil {
		return nil, fmt.Errorf("session: decode history: %w", err)
	}
	return history, nil
}
