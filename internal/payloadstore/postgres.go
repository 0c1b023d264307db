package payloadstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStore persists payloads in the claim_check_payloads table
// (migrations/001_claim_check_payloads.up.sql).
type PostgresStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewPostgresStore constructs a Postgres-backed payload store. A positive ttl
// hides rows older than ttl from Get and makes them eligible for Purge.
func NewPostgresStore(db *sql.DB, ttl time.Duration) *PostgresStore {
	return &PostgresStore{db: db, ttl: ttl, now: time.Now}
}

// Put upserts the payload row.
func (s *PostgresStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO claim_check_payloads (key, data, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, created_at = EXCLUDED.created_at`,
		key, value, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert payload %s: %w", key, err)
	}
	return nil
}

// Get loads the payload row; expired or missing rows map to ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		data      []byte
		createdAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, created_at FROM claim_check_payloads WHERE key = $1`, key,
	).Scan(&data, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select payload %s: %w", key, err)
	}
	if s.ttl > 0 && s.now().Sub(createdAt) > s.ttl {
		return nil, ErrNotFound
	}
	return data, nil
}

// Purge deletes rows older than the configured TTL and returns how many were removed.
// It is a no-op when no TTL is configured.
func (s *PostgresStore) Purge(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM claim_check_payloads WHERE created_at < $1`, s.now().UTC().Add(-s.ttl),
	)
	if err != nil {
		return 0, fmt.Errorf("purge payloads: %w", err)
	}
	return res.RowsAffected()
}

var _ Store = (*PostgresStore)(nil)
