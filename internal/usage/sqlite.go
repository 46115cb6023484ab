package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS usage_buckets (
	pk               TEXT NOT NULL,
	sk               TEXT NOT NULL,
	invocation_count INTEGER NOT NULL DEFAULT 0,
	input_tokens     INTEGER NOT NULL DEFAULT 0,
	output_tokens    INTEGER NOT NULL DEFAULT 0,
	total_tokens     INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (pk, sk)
)`

// SQLiteStore keeps usage counters in a local SQLite database. It implements
// the same additive-update contract as the DynamoDB store, which makes it the
// backend for local development and for tests.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (and if needed initializes) the database at path.
// ":memory:" is accepted for throwaway stores.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("usage: open sqlite: %w", err)
	}
	// The upsert in Add relies on single-writer semantics.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("usage: init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get returns the bucket's counters, or absence if no row exists.
func (s *SQLiteStore) Get(ctx context.Context, key Key) (Record, bool, error) {
	var rec Record
	err := s.db.QueryRowContext(ctx,
		`SELECT invocation_count, input_tokens, output_tokens, total_tokens
		 FROM usage_buckets WHERE pk = ? AND sk = ?`,
		key.PK(), key.SK(),
	).Scan(&rec.InvocationCount, &rec.InputTokens, &rec.OutputTokens, &rec.TotalTokens)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("usage: get %s: %w", key.PK(), err)
	}
	return rec, true, nil
}

// Add applies the delta as a single upsert, atomic within the database.
func (s *SQLiteStore) Add(ctx context.Context, key Key, delta Delta) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_buckets (pk, sk, invocation_count, input_tokens, output_tokens, total_tokens)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(pk, sk) DO UPDATE SET
			invocation_count = invocation_count + excluded.invocation_count,
			input_tokens     = input_tokens + excluded.input_tokens,
			output_tokens    = output_tokens + excluded.output_tokens,
			total_tokens     = total_tokens + excluded.total_tokens`,
		key.PK(), key.SK(),
		delta.InvocationCount, delta.InputTokens, delta.OutputTokens, delta.TotalTokens,
	)
	if err != nil {
		return fmt.Errorf("usage: add %s: %w", key.PK(), err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
