package auth

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Denylist revokes individual tokens by jti until their natural expiry.
// A nil client disables revocation (single-node dev mode): logout becomes a
// client-side discard and Revoked always reports false.
type Denylist struct {
	client *redis.Client
}

// NewDenylist creates a Denylist over the given redis client, which may be nil.
func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{client: client}
}

// Revoke marks a token ID as invalid until exp.
func (d *Denylist) Revoke(ctx context.Context, tokenID string, exp time.Time) error {
	if d.client == nil || tokenID == "" {
		return nil
	}
	ttl := time.Until(exp)
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, "denylist:"+tokenID, 1, ttl).Err()
}

// Revoked reports whether the token ID has been revoked.
func (d *Denylist) Revoked(ctx context.Context, tokenID string) bool {
	if d.client == nil || tokenID == "" {
		return false
	}
	n, err := d.client.Exists(ctx, "denylist:"+tokenID).Result()
	return err == nil && n > 0
}
