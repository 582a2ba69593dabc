package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable reports a failed Redis round trip.
var ErrUnavailable = errors.New("denylist backend unavailable")

// RedisDenylist records revoked token IDs under <prefix>:<jti>.
type RedisDenylist struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisDenylist returns a denylist using the given client and key prefix.
func NewRedisDenylist(client redis.UniversalClient, prefix string) *RedisDenylist {
	if prefix == "" {
		prefix = "idr:deny"
	}
	return &RedisDenylist{redis: client, prefix: prefix}
}

// Revoke stores tokenID for ttl. A non-positive ttl means the credential has
// already expired and nothing is written.
func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" {
		return errors.New("token id is required")
	}
	if ttl <= 0 {
		return nil
	}
	if err := d.redis.Set(ctx, d.key(tokenID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether tokenID is on the denylist.
func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	n, err := d.redis.Exists(ctx, d.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

func (d *RedisDenylist) key(tokenID string) string {
	return d.prefix + ":" + tokenID
}
