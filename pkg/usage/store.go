package usage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded completion's token usage.
type Entry struct {
	OwnerFingerprint string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	RecordedAt       time.Time
}

// Totals is aggregated usage for one caller.
type Totals struct {
	Requests         int64
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

const schema = `
CREATE TABLE IF NOT EXISTS usage_records (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_fingerprint  TEXT NOT NULL,
    model              TEXT NOT NULL,
    prompt_tokens      INTEGER NOT NULL,
    completion_tokens  INTEGER NOT NULL,
    total_tokens       INTEGER NOT NULL,
    recorded_at        TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_records_owner
    ON usage_records (owner_fingerprint);
`

// Store persists usage entries to SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens the usage database at path and creates the schema.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("usage: open %q: %w", path, err)
	}

	// A single writer avoids SQLITE_BUSY under concurrent recording.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("usage: create schema: %w", err)
	}

	return &Store{
		db:     db,
		logger: slog.Default().With("component", "usage.store"),
	}, nil
}

// Record persists one usage entry. A zero RecordedAt is filled with now.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_records
		     (owner_fingerprint, model, prompt_tokens, completion_tokens, total_tokens, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.OwnerFingerprint, entry.Model,
		entry.PromptTokens, entry.CompletionTokens, entry.TotalTokens,
		entry.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("usage: record: %w", err)
	}
	return nil
}

// TotalsFor aggregates usage for one owner fingerprint.
func (s *Store) TotalsFor(ctx context.Context, ownerFingerprint string) (*Totals, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(prompt_tokens), 0),
		        COALESCE(SUM(completion_tokens), 0),
		        COALESCE(SUM(total_tokens), 0)
		 FROM usage_records WHERE owner_fingerprint = ?`,
		ownerFingerprint,
	)

	var totals Totals
	if err := row.Scan(&totals.Requests, &totals.PromptTokens,
		&totals.CompletionTokens, &totals.TotalTokens); err != nil {
		return nil, fmt.Errorf("usage: aggregate: %w", err)
	}
	return &totals, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
