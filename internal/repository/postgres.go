package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gradewise/gradewise/internal/domain"
)

// PostgresTokenStore implements TokenStore on a single token_records table.
type PostgresTokenStore struct {
	db *pgxpool.Pool
}

var _ TokenStore = (*PostgresTokenStore)(nil)

// NewPostgresTokenStore constructs the store.
func NewPostgresTokenStore(db *pgxpool.Pool) *PostgresTokenStore {
	return &PostgresTokenStore{db: db}
}

const tokenRecordsSchema = `
CREATE TABLE IF NOT EXISTS token_records (
    store_key    TEXT PRIMARY KEY,
    user_id      TEXT NOT NULL,
    token_key    TEXT NOT NULL,
    token_secret TEXT NOT NULL,
    phase        TEXT NOT NULL,
    expires_at   TIMESTAMPTZ,
    created_at   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL
)`

// EnsureSchema creates the token_records table when missing.
func (s *PostgresTokenStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, tokenRecordsSchema); err != nil {
		return fmt.Errorf("ensure token_records schema: %w", err)
	}
	return nil
}

const getTokenRecordSQL = `
SELECT user_id, token_key, token_secret, phase, expires_at, created_at, updated_at
FROM token_records
WHERE store_key = $1`

// Get loads the record for key, treating expired rows as absent.
func (s *PostgresTokenStore) Get(ctx context.Context, key string) (*domain.TokenRecord, error) {
	var (
		record    domain.TokenRecord
		phase     string
		expiresAt *time.Time
	)
	row := s.db.QueryRow(ctx, getTokenRecordSQL, key)
	if err := row.Scan(&record.UserID, &record.TokenKey, &record.TokenSecret, &phase, &expiresAt, &record.CreatedAt, &record.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get token record: %w", err)
	}
	if expiresAt != nil && time.Now().After(*expiresAt) {
		return nil, nil
	}
	record.Phase = domain.TokenPhase(phase)
	return &record, nil
}

const upsertTokenRecordSQL = `
INSERT INTO token_records (store_key, user_id, token_key, token_secret, phase, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (store_key) DO UPDATE SET
    user_id      = EXCLUDED.user_id,
    token_key    = EXCLUDED.token_key,
    token_secret = EXCLUDED.token_secret,
    phase        = EXCLUDED.phase,
    expires_at   = EXCLUDED.expires_at,
    updated_at   = EXCLUDED.updated_at`

// Put upserts the record, last-write-wins. ttl of zero stores without expiry.
func (s *PostgresTokenStore) Put(ctx context.Context, key string, record domain.TokenRecord, ttl time.Duration) error {
	now := time.Now().UTC()
	var expiresAt *time.Time
	if ttl > 0 {
		t := now.Add(ttl)
		expiresAt = &t
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	if _, err := s.db.Exec(ctx, upsertTokenRecordSQL,
		key,
		record.UserID,
		record.TokenKey,
		record.TokenSecret,
		string(record.Phase),
		expiresAt,
		createdAt,
		now,
	); err != nil {
		return fmt.Errorf("put token record: %w", err)
	}
	return nil
}

// Delete removes the record for key.
func (s *PostgresTokenStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM token_records WHERE store_key = $1`, key); err != nil {
		return fmt.Errorf("delete token record: %w", err)
	}
	return nil
}
