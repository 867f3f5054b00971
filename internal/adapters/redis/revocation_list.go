package redis

// Package redis provides the optional Redis-backed session revocation list.
// When enabled, logout writes the session token ID here and the resolver
// rejects revoked cookies before their natural expiry.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/calluna-labs/authgate/internal/ports"
)

// RevocationList stores revoked session token IDs with a TTL matching the
// cookie's remaining validity, so entries expire exactly when the cookie
// would have.
type RevocationList struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.RevocationList = (*RevocationList)(nil)

// NewRevocationList creates a Redis-backed revocation list.
func NewRevocationList(client redis.UniversalClient) *RevocationList {
	return &RevocationList{client: client, prefix: "revoked:"}
}

// NewRevocationListWithPrefix creates a revocation list with a custom key prefix.
func NewRevocationListWithPrefix(client redis.UniversalClient, prefix string) *RevocationList {
	return &RevocationList{client: client, prefix: prefix}
}

// Revoke marks a token ID invalid until the given time. Already-expired
// deadlines are a no-op: the cookie can no longer verify anyway.
func (l *RevocationList) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return errors.New("token ID cannot be empty")
	}

	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}

	if err := l.client.Set(ctx, l.prefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// IsRevoked reports whether a token ID has been revoked.
func (l *RevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}

	n, err := l.client.Exists(ctx, l.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}
