package repository

import (
	"context"
	"time"

	"github.com/gradewise/gradewise/internal/domain"
)

// TokenStore persists per-user token records. Records in REQUESTED phase are
// keyed by the temporary oauth_token value and expire after ttl; AUTHORIZED
// records are keyed by user id and kept until an administrative cleanup.
// Get returns (nil, nil) when no record exists. Put is an upsert,
// last-write-wins; no cross-write transaction is provided.
type TokenStore interface {
	Get(ctx context.Context, key string) (*domain.TokenRecord, error)
	Put(ctx context.Context, key string, record domain.TokenRecord, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
